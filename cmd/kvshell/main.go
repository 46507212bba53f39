// kvshell is an interactive REPL over the store, paths and gather engines,
// grounded on the teacher's cmd/gs shell.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/VioletaStepanyan/ukv/pkg/arena"
	"github.com/VioletaStepanyan/ukv/pkg/config"
	"github.com/VioletaStepanyan/ukv/pkg/gather"
	"github.com/VioletaStepanyan/ukv/pkg/gather/extractjson"
	"github.com/VioletaStepanyan/ukv/pkg/paths"
	"github.com/VioletaStepanyan/ukv/pkg/stats/promexport"
	"github.com/VioletaStepanyan/ukv/pkg/store"
	"github.com/VioletaStepanyan/ukv/pkg/telemetry"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".exit"),
	readline.PcItem(".stats"),
	readline.PcItem(".metrics"),
	readline.PcItem("USE"),
	readline.PcItem("BEGIN",
		readline.PcItem("TRANSACTION"),
	),
	readline.PcItem("COMMIT"),
	readline.PcItem("ROLLBACK"),
	readline.PcItem("PUT"),
	readline.PcItem("GET"),
	readline.PcItem("DELETE"),
	readline.PcItem("MATCH"),
	readline.PcItem("GATHER"),
)

const helpText = `
ukv shell - interactive interface over the store, paths and gather engines

Commands:
  .help                    Show this help message
  .exit                    Exit the program
  .stats                   Show operation counters
  .metrics PORT            Serve Prometheus metrics on :PORT until Ctrl-C

  USE name                 Select (creating if needed) the current collection

  BEGIN [TRANSACTION]      Begin a transaction
  COMMIT                   Commit the current transaction
  ROLLBACK                 Abort the current transaction

  PUT name value           Store a path name mapped to value, in the current collection
  GET name                 Look up a path name
  DELETE name              Remove a path name
  MATCH prefix [after]     List path names with the given prefix, optionally resuming after a name

  GATHER name field...     Treat the JSON document at name as a row and extract the given
                           dotted fields, printing one column per field
`

func main() {
	fmt.Println("ukv shell")
	fmt.Println("Enter .help for usage hints.")

	cfg := config.NewDefaultConfig()
	db := store.Open(cfg)
	defer db.Close()

	pm := paths.New(db, cfg)
	ge := extractjson.New()

	coll := db.MainHandle()
	collName := ""
	var txn *store.Transaction

	historyFile := filepath.Join(os.TempDir(), ".kvshell_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ukv> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		prompt := "ukv"
		if collName != "" {
			prompt += ":" + collName
		}
		if txn != nil {
			prompt += "[TXN]"
		}
		rl.SetPrompt(prompt + "> ")

		line, readErr := rl.Readline()
		if readErr != nil {
			if readErr == readline.ErrInterrupt {
				if len(line) == 0 {
					break
				}
				continue
			} else if readErr == io.EOF {
				fmt.Println("goodbye")
				break
			}
			fmt.Fprintf(os.Stderr, "error reading input: %s\n", readErr)
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToUpper(parts[0])

		if strings.HasPrefix(cmd, ".") {
			switch strings.ToLower(cmd) {
			case ".help":
				fmt.Print(helpText)
			case ".exit":
				fmt.Println("goodbye")
				return
			case ".stats":
				for k, v := range db.Stats() {
					fmt.Printf("  %s = %v\n", k, v)
				}
			case ".metrics":
				if len(parts) < 2 {
					fmt.Println("error: .metrics requires a port argument")
					continue
				}
				addr := ":" + parts[1]
				fmt.Printf("serving prometheus metrics on %s/metrics (Ctrl-C to stop)\n", addr)
				if serveErr := promexport.ListenAndServe(addr, db.StatsCollector()); serveErr != nil {
					fmt.Fprintf(os.Stderr, "metrics server error: %s\n", serveErr)
				}
			default:
				fmt.Printf("unknown command: %s\n", cmd)
			}
			continue
		}

		ar := arena.New(4096, 2.0)

		switch cmd {
		case "USE":
			if len(parts) < 2 {
				fmt.Println("error: USE requires a collection name")
				continue
			}
			h, uerr := db.CollectionUpsert(parts[1])
			if uerr != nil {
				fmt.Fprintf(os.Stderr, "error: %s\n", uerr)
				continue
			}
			coll = h
			collName = parts[1]
			fmt.Printf("using collection %q\n", collName)

		case "BEGIN":
			if txn != nil {
				fmt.Println("error: transaction already in progress")
				continue
			}
			txn = db.TxnBegin(0)
			fmt.Println("started transaction")

		case "COMMIT":
			if txn == nil {
				fmt.Println("error: no transaction in progress")
				continue
			}
			if cerr := db.TxnCommit(txn, store.CommitOptions{}); cerr != nil {
				fmt.Fprintf(os.Stderr, "error committing: %s\n", cerr)
			} else {
				fmt.Println("committed")
			}
			txn = nil

		case "ROLLBACK":
			if txn == nil {
				fmt.Println("error: no transaction in progress")
				continue
			}
			if aerr := db.TxnAbort(txn); aerr != nil {
				fmt.Fprintf(os.Stderr, "error aborting: %s\n", aerr)
			} else {
				fmt.Println("rolled back")
			}
			txn = nil

		case "PUT":
			if len(parts) < 3 {
				fmt.Println("error: PUT requires name and value arguments")
				continue
			}
			name := parts[1]
			value := strings.Join(parts[2:], " ")
			task := paths.WriteTask{Collection: coll, Name: name, Value: []byte(value)}
			wopts := store.WriteOptions{Txn: txn}
			if werr := pm.Write([]paths.WriteTask{task}, wopts, ar); werr != nil {
				fmt.Fprintf(os.Stderr, "error: %s\n", werr)
				continue
			}
			fmt.Println("ok")

		case "DELETE":
			if len(parts) < 2 {
				fmt.Println("error: DELETE requires a name argument")
				continue
			}
			task := paths.WriteTask{Collection: coll, Name: parts[1], Delete: true}
			wopts := store.WriteOptions{Txn: txn}
			if werr := pm.Write([]paths.WriteTask{task}, wopts, ar); werr != nil {
				fmt.Fprintf(os.Stderr, "error: %s\n", werr)
				continue
			}
			fmt.Println("ok")

		case "GET":
			if len(parts) < 2 {
				fmt.Println("error: GET requires a name argument")
				continue
			}
			res, rerr := pm.Read([]paths.ReadTask{{Collection: coll, Name: parts[1]}}, ar)
			if rerr != nil {
				fmt.Fprintf(os.Stderr, "error: %s\n", rerr)
				continue
			}
			if bitAt(res.Presence, 0) {
				off, length := res.Offsets[0], res.Lengths[0]
				fmt.Printf("%s\n", res.Tape[off:off+length])
			} else {
				fmt.Println("(not found)")
			}

		case "MATCH":
			if len(parts) < 2 {
				fmt.Println("error: MATCH requires a prefix argument")
				continue
			}
			prefix := parts[1]
			previous := ""
			if len(parts) >= 3 {
				previous = parts[2]
			}
			task := paths.MatchTask{Collection: coll, Prefix: prefix, PreviousKey: previous, MaxCount: 100}
			res, merr := pm.Match([]paths.MatchTask{task}, ar)
			if merr != nil {
				fmt.Fprintf(os.Stderr, "error: %s\n", merr)
				continue
			}
			names := res.Names[0]
			values := res.Values[0]
			for i, n := range names {
				fmt.Printf("%s: %s\n", n, values[i])
			}
			fmt.Printf("%d entries found\n", len(names))

		case "GATHER":
			if len(parts) < 3 {
				fmt.Println("error: GATHER requires a name and at least one field")
				continue
			}
			name := parts[1]
			fields := parts[2:]
			runGather(db, pm, ge, coll, name, fields, cfg, ar)

		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}
}

func runGather(db *store.Database, pm *paths.Paths, ge extractjson.Extractor, coll store.CollectionHandle, name string, fields []string, cfg *config.Config, ar *arena.Arena) {
	res, err := pm.Read([]paths.ReadTask{{Collection: coll, Name: name}}, ar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return
	}
	if !bitAt(res.Presence, 0) {
		fmt.Println("(not found)")
		return
	}
	off, length := res.Offsets[0], res.Lengths[0]
	doc := res.Tape[off : off+length]

	var probe interface{}
	if jerr := json.Unmarshal(doc, &probe); jerr != nil {
		fmt.Fprintf(os.Stderr, "error: value is not valid JSON: %s\n", jerr)
		return
	}

	// Write the document into a throwaway key-value so gather.Gather can
	// address it through the same Read path as any stored document.
	gatherColl, err := db.CollectionUpsert("__kvshell_gather")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return
	}
	key := store.Key(1)
	if werr := db.Write(store.WriteRequest{
		Collections: []store.CollectionHandle{gatherColl},
		Keys:        []store.Key{key},
		Presence:    []bool{true},
		Values:      [][]byte{doc},
	}, store.WriteOptions{}); werr != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", werr)
		return
	}

	layout := gather.Layout{
		Collections: []store.CollectionHandle{gatherColl},
		Keys:        []store.Key{key},
		FieldNames:  fields,
		FieldTypes:  make([]gather.FieldType, len(fields)),
	}
	for i := range fields {
		layout.FieldTypes[i] = gather.Str
	}

	result, gerr := gather.Gather(db, ge, layout, cfg, ar, telemetry.NewNoop())
	if gerr != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", gerr)
		return
	}
	for _, col := range result.Columns {
		if bitAt(col.Validity, 0) {
			fmt.Printf("%s = %s\n", col.Name, valueOf(col, result.Tape))
		} else if bitAt(col.Collided, 0) {
			fmt.Printf("%s = (collision)\n", col.Name)
		} else {
			fmt.Printf("%s = (missing)\n", col.Name)
		}
	}
}

func valueOf(col gather.Column, tape []byte) string {
	if col.Type.Variable() {
		return string(tape[col.Offsets[0] : col.Offsets[0]+col.Lengths[0]])
	}
	return strconv.Itoa(int(col.Scalars[0]))
}

func bitAt(bm []byte, i int) bool {
	if i>>3 >= len(bm) {
		return false
	}
	return bm[i>>3]&(1<<uint(i&7)) != 0
}
