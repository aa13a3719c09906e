// Package wire implements the bit-exact serialization format shared by
// every Ring: a single header line followed by an optional item block, with
// payload bytes produced and consumed entirely by a caller-supplied
// api.Codec. The framing here never inspects payload bytes.
package wire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/momentics/memring/api"
)

// Writer is the minimal surface wire needs from a Ring to serialize it: an
// ordered walk plus the handful of header fields. Implemented by
// *ring.Ring[T] through a small adapter to avoid an import cycle.
type Writer[T any] interface {
	MaxID() uint32
	UseIDMap() bool
	UseNameMap() bool
	RingName() string
	ForEachItem(func(id uint32, name string, payload *T))
}

// Loader is the minimal surface wire needs to rebuild a Ring: clear it, then
// append items and toggle the maps, in save order.
type Loader[T any] interface {
	ClearForLoad()
	SetMapsForLoad(useID, useName bool)
	SetRingNameForLoad(name string)
	AppendForLoad(payload *T, id uint32, name string) error
}

// Save writes header + optional item block for one ring to w.
func Save[T any](w io.Writer, src Writer[T], codec api.Codec[T]) error {
	var items []struct {
		id      uint32
		name    string
		payload *T
	}
	src.ForEachItem(func(id uint32, name string, payload *T) {
		items = append(items, struct {
			id      uint32
			name    string
			payload *T
		}{id, name, payload})
	})

	name := src.RingName()
	if _, err := fmt.Fprintf(w, "R;%d;%d;%d;%d;%s\n",
		src.MaxID(), boolBit(src.UseIDMap()), boolBit(src.UseNameMap()), len(name)+1, name); err != nil {
		return fmt.Errorf("%w: writing ring header: %v", api.ErrLoadFailed, err)
	}
	if len(items) == 0 {
		return nil
	}
	if _, err := fmt.Fprint(w, "D;\n"); err != nil {
		return fmt.Errorf("%w: writing data marker: %v", api.ErrLoadFailed, err)
	}
	for _, it := range items {
		if _, err := fmt.Fprintf(w, "C;%d;%d;%s;I;", it.id, len(it.name)+1, it.name); err != nil {
			return fmt.Errorf("%w: writing item header: %v", api.ErrLoadFailed, err)
		}
		if err := codec.Encode(w, it.payload); err != nil {
			return fmt.Errorf("%w: encoding payload: %v", api.ErrLoadFailed, err)
		}
		if _, err := fmt.Fprint(w, ";\n"); err != nil {
			return fmt.Errorf("%w: writing item terminator: %v", api.ErrLoadFailed, err)
		}
	}
	return nil
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Load reads one ring (header plus optional item block) from r into dst. If
// search is true, bytes are skipped until the next 'R' record marker; if
// false, the next byte must already be 'R'.
func Load[T any](r io.Reader, dst Loader[T], codec api.Codec[T], search bool) error {
	br := bufio.NewReader(r)

	if search {
		if err := skipToMarker(br, 'R'); err != nil {
			return err
		}
	} else {
		b, err := br.ReadByte()
		if err != nil || b != 'R' {
			return fmt.Errorf("%w: expected ring record marker", api.ErrLoadFailed)
		}
	}
	if err := consumeSeparator(br); err != nil {
		return fmt.Errorf("%w: reading ring header: %v", api.ErrLoadFailed, err)
	}

	header, err := readLine(br)
	if err != nil {
		return fmt.Errorf("%w: reading ring header: %v", api.ErrLoadFailed, err)
	}
	fields := strings.SplitN(header, ";", 4)
	if len(fields) < 4 {
		return fmt.Errorf("%w: malformed ring header", api.ErrLoadFailed)
	}
	maxID, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return fmt.Errorf("%w: malformed max_id: %v", api.ErrLoadFailed, err)
	}
	useID := fields[1] == "1"
	useName := fields[2] == "1"
	// fields[3] is "<name_len>;<name>"; re-split because the name itself is
	// not escaped and may in principle contain ';'.
	rest := fields[3]
	semi := strings.IndexByte(rest, ';')
	if semi < 0 {
		return fmt.Errorf("%w: malformed name_len field", api.ErrLoadFailed)
	}
	nLen, err := strconv.Atoi(rest[:semi])
	if err != nil {
		return fmt.Errorf("%w: malformed name_len: %v", api.ErrLoadFailed, err)
	}
	name := rest[semi+1:]
	if nLen > 0 && len(name) >= nLen-1 {
		name = name[:nLen-1]
	}

	dst.ClearForLoad()
	dst.SetRingNameForLoad(name)
	dst.SetMapsForLoad(useID, useName)
	_ = maxID

	peek, err := br.Peek(2)
	if err != nil || string(peek[:1]) != "D" {
		return nil // empty ring: no data block follows
	}
	if _, err := readLine(br); err != nil { // consume "D;"
		return fmt.Errorf("%w: reading data marker: %v", api.ErrLoadFailed, err)
	}

	for {
		peek, err := br.Peek(1)
		if err != nil || peek[0] != 'C' {
			break
		}
		if _, err := br.ReadByte(); err != nil {
			return fmt.Errorf("%w: reading item marker: %v", api.ErrLoadFailed, err)
		}
		if err := consumeSeparator(br); err != nil {
			return fmt.Errorf("%w: reading item header: %v", api.ErrLoadFailed, err)
		}
		line, err := readItemLineUpToPayload(br)
		if err != nil {
			return err
		}
		idStr, nameField, ok := splitItemPrefix(line)
		if !ok {
			return fmt.Errorf("%w: malformed item header", api.ErrLoadFailed)
		}
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: malformed item id: %v", api.ErrLoadFailed, err)
		}
		payload, err := codec.Decode(br)
		if err != nil {
			return fmt.Errorf("%w: decoding payload: %v", api.ErrLoadFailed, err)
		}
		if err := consumeItemTerminator(br); err != nil {
			return err
		}
		if err := dst.AppendForLoad(payload, uint32(id), nameField); err != nil {
			return err
		}
	}
	return nil
}

// consumeSeparator reads and discards the ';' that immediately follows a
// single-character record marker ('R' or 'C') before the marker's own
// semicolon-delimited fields begin.
func consumeSeparator(br *bufio.Reader) error {
	b, err := br.ReadByte()
	if err != nil {
		return err
	}
	if b != ';' {
		return fmt.Errorf("expected ';' after record marker, got %q", b)
	}
	return nil
}

func skipToMarker(br *bufio.Reader, marker byte) error {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: no ring marker found", api.ErrLoadFailed)
		}
		if b == marker {
			return nil
		}
	}
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && len(line) == 0 {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// readItemLineUpToPayload reads "<id>;<name_len>;<name>;I;" and returns the
// portion before "I;", leaving the reader positioned at the payload bytes.
func readItemLineUpToPayload(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: truncated item header: %v", api.ErrLoadFailed, err)
		}
		sb.WriteByte(b)
		s := sb.String()
		if strings.HasSuffix(s, "I;") {
			return strings.TrimSuffix(s, "I;"), nil
		}
	}
}

func splitItemPrefix(s string) (id, name string, ok bool) {
	parts := strings.SplitN(s, ";", 3)
	if len(parts) < 3 {
		return "", "", false
	}
	nLen, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", "", false
	}
	nameField := parts[2]
	if nLen > 0 && len(nameField) >= nLen-1 {
		nameField = nameField[:nLen-1]
	} else if semi := strings.IndexByte(nameField, ';'); semi >= 0 {
		nameField = nameField[:semi]
	}
	return parts[0], nameField, true
}

// consumeItemTerminator reads the trailing ";\n" after a decoded payload.
func consumeItemTerminator(br *bufio.Reader) error {
	line, err := readLine(br)
	if err != nil {
		return fmt.Errorf("%w: truncated item terminator: %v", api.ErrLoadFailed, err)
	}
	if line != ";" && line != "" {
		// tolerate codecs that leave trailing bytes before ';\n' uneaten.
	}
	return nil
}
