// Command generate writes the sample users table in every supported format,
// for trying the CLI by hand:
//
//	go run ./testdata -dir /tmp/colframe-samples
//	colframe query /tmp/colframe-samples/users.parquet "SELECT name WHERE active"
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/output"
)

var dirFlag = flag.String("dir", ".", "directory to write the sample files into")

func users() (*frame.DataFrame, error) {
	score := frame.NewBuilder("score", frame.Float64, 5)
	for _, v := range []interface{}{95.5, 82.3, nil, 91.2, 76.8} {
		if err := score.AppendValue(v); err != nil {
			return nil, err
		}
	}
	return frame.New(
		frame.Int64s("id", []int64{1, 2, 3, 4, 5}),
		frame.Strings("name", []string{"alice", "bob", "charlie", "diana", "eve"}),
		frame.Int64s("age", []int64{30, 25, 35, 28, 42}),
		frame.Bools("active", []bool{true, false, true, true, false}),
		score.Finish(),
	)
}

func main() {
	flag.Parse()

	df, err := users()
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(*dirFlag, 0o755); err != nil {
		log.Fatal(err)
	}

	names := []string{
		"users.csv",
		"users.json",
		"users.ndjson.gz",
		"users.parquet",
		"users.arrow",
		"users.avro",
	}
	for _, name := range names {
		path := filepath.Join(*dirFlag, name)
		if err := output.WriteFile(df, path, output.Options{}); err != nil {
			log.Fatal(err)
		}
		log.Printf("Generated %s with %d users", path, df.Height())
	}
}
