package loader

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// textDecoder converts DBF attribute bytes to UTF-8. A nil decoder passes
// text through unchanged.
type textDecoder struct {
	dec *encoding.Decoder
}

func (t textDecoder) decode(s string) string {
	if t.dec == nil {
		return s
	}
	out, err := t.dec.String(s)
	if err != nil {
		return s
	}
	return out
}

// newTextDecoder picks the DBF encoding: the explicit override if set,
// otherwise the .cpg sidecar, otherwise UTF-8.
func newTextDecoder(shpPath, override string) (textDecoder, error) {
	name := override
	fromSidecar := false
	if name == "" {
		raw, err := readSidecar(shpPath, ".cpg")
		if err != nil {
			return textDecoder{}, nil
		}
		name = strings.TrimSpace(string(raw))
		fromSidecar = true
	}

	enc, err := LookupEncoding(name)
	if err != nil {
		if fromSidecar {
			zap.L().Warn("loader: unknown .cpg encoding, reading as UTF-8",
				zap.String("encoding", name),
			)
			return textDecoder{}, nil
		}
		return textDecoder{}, err
	}
	if enc == nil {
		return textDecoder{}, nil
	}
	return textDecoder{dec: enc.NewDecoder()}, nil
}

// LookupEncoding resolves a code page name as written in .cpg files
// ("UTF-8", "1252", "ANSI 1251", "ISO-8859-1"). UTF-8 returns nil.
func LookupEncoding(name string) (encoding.Encoding, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "ansi ")
	n = strings.ReplaceAll(n, "_", "-")
	switch {
	case n == "" || n == "utf-8" || n == "utf8" || n == "65001":
		return nil, nil
	case isDigits(n):
		n = "windows-" + n
	case strings.HasPrefix(n, "8859-"):
		n = "iso-" + n
	}

	enc, err := htmlindex.Get(n)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: unknown encoding %q", name)
	}
	return enc, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// readSidecar reads the file next to shpPath with the given extension,
// trying lower and upper case.
func readSidecar(shpPath, ext string) ([]byte, error) {
	base := shpPath[:len(shpPath)-len(".shp")]
	data, err := os.ReadFile(base + ext)
	if err == nil {
		return data, nil
	}
	if upper, upErr := os.ReadFile(base + strings.ToUpper(ext)); upErr == nil {
		return upper, nil
	}
	return nil, err
}
