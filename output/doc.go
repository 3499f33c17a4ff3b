// Package output encodes frames into files, streams and database tables.
//
// Every file format implements the Writer interface and is selected by name
// through New, or by path extension through WriteFile:
//
//   - CSV: delimited text with a header record; nulls are empty fields
//   - JSON: one columnar document that records each column's dtype
//   - NDJSON: one object per row, keys in column order
//   - Parquet: optional flat leaves, with the frame schema kept in the
//     file metadata so column order and dtypes survive a round trip
//   - Arrow: an IPC stream of record batches
//   - Avro: an object container file of nullable unions
//   - Table: an aligned text table for terminals
//
// # Basic Usage
//
// Writing a frame to a file, compressed by extension:
//
//	err := output.WriteFile(df, "result.csv.gz", output.Options{})
//
// Writing to any io.Writer:
//
//	w, err := output.New(output.Parquet, output.Options{
//	    Parquet: output.ParquetOptions{Compression: "zstd"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := w.Write(df, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
//
// # SQL Tables
//
// SQL creates a table and inserts every row in one transaction:
//
//	db, _ := sql.Open("sqlite", "file:out.db")
//	err := output.SQL(ctx, db, "results", df, output.SQLOptions{Replace: true})
//
// # CSV Injection
//
// With CSVOptions.Sanitize set, string fields beginning with a character a
// spreadsheet would evaluate (=, +, -, @, |, tab or a line break) are
// prefixed with a single quote.
package output
