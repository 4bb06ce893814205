package watcher

import (
	"io"
	"log/slog"
	"mime"
	"regexp"
	"strings"

	"github.com/emersion/go-message/charset"
	"golang.org/x/text/unicode/norm"
)

var subjectDecoder = &mime.WordDecoder{CharsetReader: lenientCharsetReader}

// lenientCharsetReader resolves the charsets known to go-message (GBK, Big5,
// ISO-8859-*, windows-125x, ...). Unknown labels pass the bytes through
// untouched; DecodeSubject repairs any invalid UTF-8 afterwards.
func lenientCharsetReader(label string, input io.Reader) (io.Reader, error) {
	r, err := charset.Reader(label, input)
	if err != nil {
		slog.Debug("Unknown subject charset, keeping raw bytes", "charset", label, "error", err)
		return input, nil
	}
	return r, nil
}

// encodedWord matches one RFC 2047 encoded word: =?charset?encoding?text?=
var encodedWord = regexp.MustCompile(`=\?[^?\s]+\?[bBqQ]\?[^?\s]*\?=`)

// DecodeSubject turns a raw Subject header value into display text.
//
// Encoded words (RFC 2047) are decoded in their declared charset and put in
// Unicode normalization form C; whitespace between adjacent encoded words is
// dropped. Plain text around them is returned as is. An empty or absent
// header yields "". It never fails: a malformed encoded word stays in place
// verbatim and bytes that are not valid UTF-8 become U+FFFD.
func DecodeSubject(raw string) string {
	if raw == "" {
		return ""
	}

	var (
		b        strings.Builder
		last     int
		prevWord bool
	)

	for _, loc := range encodedWord.FindAllStringIndex(raw, -1) {
		between := raw[last:loc[0]]
		text, ok := decodeWord(raw[loc[0]:loc[1]])

		if !prevWord || !ok || strings.TrimSpace(between) != "" {
			b.WriteString(between)
		}
		b.WriteString(text)

		last = loc[1]
		prevWord = ok
	}
	b.WriteString(raw[last:])

	return strings.ToValidUTF8(b.String(), "�")
}

// decodeWord reports false when word could not be decoded and is returned
// verbatim.
func decodeWord(word string) (string, bool) {
	decoded, err := subjectDecoder.Decode(word)
	if err != nil {
		slog.Debug("Failed to decode encoded word, keeping it raw", "word", word, "error", err)
		return word, false
	}

	return norm.NFC.String(strings.ToValidUTF8(decoded, "�")), true
}
