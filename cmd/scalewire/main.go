package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/substratools/scalewire"
	"github.com/substratools/scalewire/metadata"
	"github.com/substratools/scalewire/registry"
	"github.com/substratools/scalewire/value"
)

func main() {
	var (
		url         = flag.String("url", "", "Node websocket URL (ws:// or wss://)")
		metaFile    = flag.String("meta", "", "Metadata file: 0x hex, raw SCALE or runtime .wasm")
		typeID      = flag.Int("type", -1, "Type id to decode -hex against")
		hexStr      = flag.String("hex", "", "SCALE bytes to decode (hex)")
		listPallets = flag.Bool("list-pallets", false, "List pallets and exit")
		interactive = flag.Bool("i", false, "Interactive explorer TUI")
	)
	flag.Parse()

	if *url == "" && *metaFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: scalewire -url <ws://node> [-list-pallets] [-i]")
		fmt.Fprintln(os.Stderr, "       scalewire -meta <file> -type <id> -hex <bytes>")
		fmt.Fprintln(os.Stderr, "       scalewire -meta <file> -i  (offline explorer)")
		os.Exit(1)
	}

	if err := run(*url, *metaFile, *typeID, *hexStr, *listPallets, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(url, metaFile string, typeID int, hexStr string, listPallets, interactive bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if url != "" && metaFile != "" {
		return errors.New("use -url or -meta, not both")
	}

	client, err := loadClient(ctx, url, metaFile)
	if err != nil {
		return err
	}
	defer client.Close()
	meta := client.Metadata()

	switch {
	case interactive:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("interactive mode needs a terminal")
		}
		return runInteractive(client, url != "")
	case listPallets:
		printPallets(meta)
		return nil
	case typeID >= 0:
		return decodeHex(meta, typeID, hexStr)
	default:
		return printSummary(ctx, client)
	}
}

// loadClient builds the client either from a live node or from a
// metadata file for offline decoding.
func loadClient(ctx context.Context, url, metaFile string) (*scalewire.Client, error) {
	if metaFile == "" {
		return scalewire.Connect(ctx, url)
	}
	meta, err := loadMetadataFile(ctx, metaFile)
	if err != nil {
		return nil, err
	}
	return scalewire.NewFromMetadata(nil, meta), nil
}

func loadMetadataFile(ctx context.Context, path string) (*metadata.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	switch {
	case bytes.HasPrefix(data, []byte("\x00asm")):
		return metadata.FromRuntimeWASM(ctx, data)
	case looksHex(data):
		return metadata.DecodeHex(strings.TrimSpace(string(data)))
	default:
		return metadata.Parse(data)
	}
}

// looksHex reports whether the file holds a hex dump rather than raw
// SCALE. Raw metadata starts with "meta", which contains non-hex
// letters, so sniffing the characters is unambiguous.
func looksHex(data []byte) bool {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, "0x") {
		return true
	}
	if len(s) == 0 || len(s)%2 != 0 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func printSummary(ctx context.Context, client *scalewire.Client) error {
	meta := client.Metadata()

	fmt.Printf("Metadata: v%d\n", meta.Version)
	fmt.Printf("Types: %d\n", meta.Types.Len())
	fmt.Printf("Pallets: %d\n", len(meta.Pallets))
	fmt.Printf("Extrinsic version: %d\n", meta.Extrinsic.Version)
	if len(meta.APIs) > 0 {
		fmt.Printf("Runtime APIs: %d\n", len(meta.APIs))
	}

	if rv, err := client.RuntimeVersion(ctx); err == nil {
		fmt.Printf("Runtime: %s/%d (tx v%d)\n", rv.SpecName, rv.SpecVersion, rv.TransactionVersion)
	} else if !errors.Is(err, scalewire.ErrOffline) {
		return err
	}

	fmt.Printf("\nUse -list-pallets, -type <id> -hex <bytes>, or -i to explore.\n")
	return nil
}

func printPallets(meta *metadata.Metadata) {
	fmt.Printf("Metadata v%d, %d pallets:\n\n", meta.Version, len(meta.Pallets))
	for i := range meta.Pallets {
		p := &meta.Pallets[i]
		fmt.Printf("  [%3d] %-24s", p.Index, p.Name)
		if len(p.Entries) > 0 {
			fmt.Printf(" storage:%-3d", len(p.Entries))
		} else {
			fmt.Printf("            ")
		}
		var caps []string
		if _, ok := p.CallType(); ok {
			caps = append(caps, "calls")
		}
		if _, ok := p.EventType(); ok {
			caps = append(caps, "events")
		}
		if _, ok := p.ErrorType(); ok {
			caps = append(caps, "errors")
		}
		if len(caps) > 0 {
			fmt.Printf(" %s", strings.Join(caps, " "))
		}
		fmt.Println()
	}
}

func decodeHex(meta *metadata.Metadata, typeID int, hexStr string) error {
	if hexStr == "" {
		return errors.New("-type needs -hex bytes to decode")
	}
	data, err := parseHex(hexStr)
	if err != nil {
		return fmt.Errorf("-hex: %w", err)
	}
	v, rest, err := value.DecodeValue(data, registry.TypeID(typeID), meta.Types)
	if err != nil {
		return fmt.Errorf("decode type %d: %w", typeID, err)
	}
	fmt.Println(renderValue(v))
	if len(rest) > 0 {
		fmt.Printf("(%d trailing bytes: 0x%x)\n", len(rest), rest)
	}
	return nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("hex: %w", err)
	}
	return b, nil
}

// renderValue prints a value tree, expanding composites that do not
// fit on one line.
func renderValue(v value.Value) string {
	var b strings.Builder
	writeValueTree(&b, v, "")
	return b.String()
}

const inlineWidth = 60

func writeValueTree(b *strings.Builder, v value.Value, indent string) {
	if s := v.String(); len(s) <= inlineWidth {
		b.WriteString(s)
		return
	}
	switch d := v.Def.(type) {
	case value.Composite:
		writeCompositeTree(b, d, indent)
	case value.Variant:
		b.WriteString(d.Name)
		if d.Fields.Len() > 0 {
			b.WriteString(" ")
			writeCompositeTree(b, d.Fields, indent)
		}
	default:
		b.WriteString(v.String())
	}
}

func writeCompositeTree(b *strings.Builder, c value.Composite, indent string) {
	open, end := "(", ")"
	if c.Named() {
		open, end = "{", "}"
	}
	b.WriteString(open)
	for i, child := range c.Values {
		b.WriteString("\n" + indent + "  ")
		if c.Named() {
			b.WriteString(c.Names[i] + ": ")
		}
		writeValueTree(b, child, indent+"  ")
		b.WriteString(",")
	}
	b.WriteString("\n" + indent + end)
}
