// Package reader decodes CSV, JSON, NDJSON, Parquet, Arrow IPC and Avro
// input into frames.
//
// Every codec implements Reader over an io.Reader. ReadFile and Scan add
// file handling on top: the format and stream compression (gzip, zstd, lz4,
// brotli) come from the extensions, and glob patterns read every match.
//
// # Basic Usage
//
// Reading a single file:
//
//	df, err := reader.ReadFile("events.ndjson.zst", reader.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(df.Columns(), df.Height())
//
// Forcing a format or CSV options:
//
//	df, err := reader.ReadFile("dump.txt", reader.Options{
//	    Format: reader.CSV,
//	    CSV:    reader.CSVOptions{Separator: '\t', NullValues: []string{"NA"}},
//	})
//
// # Multi-file Operations
//
// A glob pattern stacks every match and adds a "_file" column with each
// row's source path:
//
//	df, err := reader.ReadFile("data/*.parquet", reader.Options{})
//
// # Lazy Scans
//
// Scan defers reading until the plan is collected. Parquet schemas resolve
// from the footer alone, so building and explaining a plan stays cheap:
//
//	lf := reader.Scan("data.parquet", reader.Options{}).
//	    Filter(frame.Col("age").Gt(30)).
//	    Select(frame.Col("name"))
//	df, err := lf.Collect()
//
// # Schema Introspection
//
// InspectParquet lists leaf columns with their physical and logical types
// and the dtype they load as:
//
//	infos, err := reader.InspectParquet(f, size)
//	for _, c := range infos {
//	    fmt.Printf("%s: %s (%s)\n", c.Name, c.DType, c.PhysicalType)
//	}
//
// # Databases
//
// SQL loads the result of a database/sql query:
//
//	df, err := reader.SQL(ctx, db, "SELECT * FROM users WHERE age > ?", 30)
package reader
