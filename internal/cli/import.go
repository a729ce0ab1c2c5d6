package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/memori-store/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from JSON",
		Long: "Import records of one kind from a JSON array or JSON lines (stdin or --file). " +
			"Records without a namespace get the current one. Bad records are reported and skipped.",
		Run: runImport,
	}

	cmd.Flags().StringP("kind", "k", "", "Kind: chat_history, short_term or long_term (required)")
	cmd.Flags().String("file", "", "Read from file instead of stdin")

	cmd.MarkFlagRequired("kind")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	kindStr, _ := cmd.Flags().GetString("kind")
	file, _ := cmd.Flags().GetString("file")

	kind, err := model.ParseKind(kindStr)
	if err != nil {
		exitErr("import", err)
	}

	var r io.Reader = os.Stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		exitErr("read input", err)
	}

	e, cfg := openEngine()
	defer e.Close()

	records, err := decodeRecords(data, kind, cfg.Namespace)
	if err != nil {
		exitErr("parse json", err)
	}

	res, err := e.BatchStore(cmd.Context(), kind, records)
	if err != nil {
		exitErr("import", err)
	}

	failures := make([]map[string]any, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, map[string]any{"index": f.Index, "error": f.Err.Error()})
	}
	printJSON(cmd, map[string]any{
		"ok":       len(res.Failures) == 0,
		"imported": res.Stored,
		"failed":   failures,
	})
}

// decodeRecords parses a JSON array or JSON lines into records of kind.
func decodeRecords(data []byte, kind model.Kind, ns string) ([]any, error) {
	var raws []json.RawMessage
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, err
		}
	} else {
		sc := bufio.NewScanner(bytes.NewReader(trimmed))
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			raws = append(raws, json.RawMessage(append([]byte(nil), line...)))
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}

	records := make([]any, 0, len(raws))
	for i, raw := range raws {
		rec, err := decodeRecord(raw, kind, ns)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(raw json.RawMessage, kind model.Kind, ns string) (any, error) {
	switch kind {
	case model.KindChat:
		var c model.ChatInteraction
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		if c.Namespace == "" {
			c.Namespace = ns
		}
		return c, nil
	case model.KindShortTerm:
		var m model.ShortTermMemory
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		if m.Namespace == "" {
			m.Namespace = ns
		}
		return m, nil
	default:
		var m model.LongTermMemory
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		if m.Namespace == "" {
			m.Namespace = ns
		}
		return m, nil
	}
}
