package repository

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// candidate is one successful decoding of a file.
type candidate struct {
	encoding string
	text     string
}

// legacyEncodings are tried in order when the bytes are not UTF-8.
var legacyEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"big5", traditionalchinese.Big5},
	{"gbk", simplifiedchinese.GBK},
}

// decodeCandidates returns every plausible text rendering of raw, most
// likely first. Marked encodings (BOMs, valid UTF-8) yield a single
// candidate; otherwise each legacy encoding that decodes without
// replacement characters is offered.
func decodeCandidates(raw []byte) ([]candidate, error) {
	switch {
	case bytes.HasPrefix(raw, bomUTF16LE), bytes.HasPrefix(raw, bomUTF16BE):
		// ExpectBOM lets the mark pick the byte order and strips it.
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return nil, err
		}
		return []candidate{{encoding: "utf-16", text: string(out)}}, nil
	case bytes.HasPrefix(raw, bomUTF8):
		rest := raw[len(bomUTF8):]
		if !utf8.Valid(rest) {
			return nil, ErrEncoding
		}
		return []candidate{{encoding: "utf-8-sig", text: string(rest)}}, nil
	case utf8.Valid(raw):
		return []candidate{{encoding: "utf-8", text: string(raw)}}, nil
	}

	var out []candidate
	for _, le := range legacyEncodings {
		b, err := le.enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		text := string(b)
		if strings.ContainsRune(text, utf8.RuneError) {
			continue
		}
		out = append(out, candidate{encoding: le.name, text: text})
	}
	if len(out) == 0 {
		return nil, ErrEncoding
	}
	return out, nil
}
