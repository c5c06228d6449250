// bench - MINBIN size benchmark runner
//
// Compares MINBIN against other serializations of the same values:
//   - JSON (minified)
//   - CBOR (fxamacker/cbor)
//   - msgpack (vmihailenco/msgpack)
//   - JSON + zstd (the "just compress it" baseline)
//
// Output: a summary table on stdout, optional CSV via --csv.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	flag "github.com/spf13/pflag"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Neumenon/minbin/bind"
)

type caseResult struct {
	Name     string
	MINBIN   int
	JSON     int
	CBOR     int
	Msgpack  int
	ZstdJSON int
}

// Corpus types. Field shapes are chosen to stress the cases MINBIN is
// built for: small values in wide fields, optionals, nesting.

type user struct {
	ID     uint64
	Name   string
	Email  string
	Active bool
	Age    uint8
	Karma  int64
	Avatar *string
	Roles  []string
}

type point struct {
	Timestamp uint64
	SensorID  uint32
	Value     float64
	Quality   uint8
}

type orderLine struct {
	SKU       string
	Quantity  uint32
	CentsEach uint64
}

type order struct {
	ID       uint64
	UserID   uint64
	Lines    []orderLine
	Coupon   *string
	Metadata map[string]string
}

func main() {
	csvPath := flag.String("csv", "", "also write results as CSV to this file")
	flag.Parse()

	cases := buildCases()

	zenc, err := zstd.NewWriter(nil)
	if err != nil {
		fatal("zstd: %v", err)
	}
	defer zenc.Close()

	var results []caseResult
	for _, c := range cases {
		mb, err := bind.Marshal(c.value)
		if err != nil {
			fatal("%s: minbin: %v", c.name, err)
		}
		js, err := json.Marshal(c.value)
		if err != nil {
			fatal("%s: json: %v", c.name, err)
		}
		cb, err := cbor.Marshal(c.value)
		if err != nil {
			fatal("%s: cbor: %v", c.name, err)
		}
		mp, err := msgpack.Marshal(c.value)
		if err != nil {
			fatal("%s: msgpack: %v", c.name, err)
		}
		zj := zenc.EncodeAll(js, nil)

		results = append(results, caseResult{
			Name:     c.name,
			MINBIN:   len(mb),
			JSON:     len(js),
			CBOR:     len(cb),
			Msgpack:  len(mp),
			ZstdJSON: len(zj),
		})
	}

	printTable(results)

	if *csvPath != "" {
		if err := writeCSV(*csvPath, results); err != nil {
			fatal("csv: %v", err)
		}
		fmt.Fprintf(os.Stderr, "CSV written to: %s\n", *csvPath)
	}
}

type benchCase struct {
	name  string
	value any
}

func buildCases() []benchCase {
	avatar := "https://cdn.example.net/a/7f3c.png"
	coupon := "WELCOME10"

	users := make([]user, 50)
	for i := range users {
		users[i] = user{
			ID:     uint64(1000 + i),
			Name:   fmt.Sprintf("user-%02d", i),
			Email:  fmt.Sprintf("user%02d@example.net", i),
			Active: i%3 != 0,
			Age:    uint8(18 + i%60),
			Karma:  int64(i*7 - 40),
			Roles:  []string{"member"},
		}
		if i%4 == 0 {
			users[i].Avatar = &avatar
			users[i].Roles = append(users[i].Roles, "moderator")
		}
	}

	points := make([]point, 200)
	for i := range points {
		points[i] = point{
			Timestamp: 1735689600 + uint64(i)*30,
			SensorID:  uint32(7 + i%3),
			Value:     20.0 + float64(i%17)*0.25,
			Quality:   uint8(i % 4),
		}
	}

	orders := make([]order, 25)
	for i := range orders {
		orders[i] = order{
			ID:     uint64(500000 + i),
			UserID: uint64(1000 + i*2),
			Lines: []orderLine{
				{SKU: "A-100", Quantity: 1, CentsEach: 1999},
				{SKU: "B-250", Quantity: uint32(1 + i%3), CentsEach: 450},
			},
			Metadata: map[string]string{"channel": "web", "region": "eu"},
		}
		if i%5 == 0 {
			orders[i].Coupon = &coupon
		}
	}

	return []benchCase{
		{"single_user", users[0]},
		{"user_list_50", users},
		{"telemetry_200", points},
		{"orders_25", orders},
		{"small_ints_in_wide_fields", []uint64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89}},
	}
}

func printTable(results []caseResult) {
	fmt.Printf("%-26s %8s %8s %8s %8s %10s\n", "case", "minbin", "json", "cbor", "msgpack", "json+zstd")
	for _, r := range results {
		fmt.Printf("%-26s %8d %8d %8d %8d %10d\n", r.Name, r.MINBIN, r.JSON, r.CBOR, r.Msgpack, r.ZstdJSON)
	}
	fmt.Println()
	for _, r := range results {
		fmt.Printf("%-26s %5.1f%% of json, %5.1f%% of cbor, %5.1f%% of msgpack\n",
			r.Name,
			100*float64(r.MINBIN)/float64(r.JSON),
			100*float64(r.MINBIN)/float64(r.CBOR),
			100*float64(r.MINBIN)/float64(r.Msgpack))
	}
}

func writeCSV(path string, results []caseResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(f, "name,minbin_bytes,json_bytes,cbor_bytes,msgpack_bytes,zstd_json_bytes")
	for _, r := range results {
		fmt.Fprintf(f, "%s,%d,%d,%d,%d,%d\n", r.Name, r.MINBIN, r.JSON, r.CBOR, r.Msgpack, r.ZstdJSON)
	}
	return nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "bench: "+format+"\n", args...)
	os.Exit(1)
}
