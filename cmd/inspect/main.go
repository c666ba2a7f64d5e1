// Command inspect dumps the message, notification and account keyspaces of a
// live or offline badger store as a table. It opens the store read-only with
// BypassLockGuard so it can run next to the server process.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"/tmp/market-live"`
	Colours        bool   `envconfig:"INSPECT_COLOURS" default:"true"`
}

func main() {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Config error: ", err)
	}

	dbPath := flag.String("db", cfg.BadgerFilepath, "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, ntf:, user:)")
	flag.Parse()

	if !cfg.Colours {
		color.Disable()
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Timestamp", "Entity ID", "Scope", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				table.Append(toRow(string(item.Key()), v))
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	color.Green.Printf("\n%d records under %q\n", rows, *prefix)
}

// toRow decodes the shared key layout "{kind}:{scope}:{padded_ts}:{uuid}"
// and pulls a human-readable detail out of the stored JSON record.
func toRow(key string, val []byte) []string {
	kind, scope, timestamp, entity := "RAW", "-", "--:--:--", "--------"

	parts := strings.Split(key, ":")
	if len(parts) >= 4 {
		kind = strings.ToUpper(parts[0])
		scope = parts[1]
		if tsNano, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			timestamp = time.Unix(0, tsNano).Format("15:04:05")
		}
		entity = parts[3]
		if len(entity) > 8 {
			entity = entity[:8]
		}
	} else if len(parts) == 2 && parts[0] == "user" {
		kind, scope = "USER", parts[1]
	}

	detail := fmt.Sprintf("Size: %d bytes", len(val))
	var record map[string]any
	if err := json.Unmarshal(val, &record); err == nil {
		switch {
		case record["content"] != nil:
			detail, _ = record["content"].(string)
		case record["title"] != nil:
			detail, _ = record["title"].(string)
		case record["email"] != nil:
			detail, _ = record["email"].(string)
		}
	}

	return []string{key, kind, timestamp, entity, scope, detail}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
