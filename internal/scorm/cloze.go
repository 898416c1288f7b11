package scorm

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Expected cloze answers are shipped to the browser scrambled so they do
// not show up in the page source as plain text. The encoding is
//
//	<offset>-<offset reversed>-###-<payload>
//
// where every rune of the answer in payload is followed by offset%4+1
// random filler characters. common/quiz.js carries the decoder.
const (
	clozeMarker = "###"
	fillerChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

func clozeStride(offset int) int { return offset%4 + 1 }

// EncryptClozeText scrambles s. Each call draws a fresh offset and filler.
func EncryptClozeText(s string, rnd *rand.Rand) string {
	offset := 10 + rnd.IntN(90)
	stride := clozeStride(offset)
	head := strconv.Itoa(offset)

	var sb strings.Builder
	sb.WriteString(head)
	sb.WriteByte('-')
	sb.WriteString(reverse(head))
	sb.WriteString("-" + clozeMarker + "-")
	for _, r := range s {
		sb.WriteRune(r)
		for k := 0; k < stride; k++ {
			sb.WriteByte(fillerChars[rnd.IntN(len(fillerChars))])
		}
	}
	return sb.String()
}

// DecryptClozeText recovers the text EncryptClozeText scrambled.
func DecryptClozeText(s string) (string, error) {
	parts := strings.SplitN(s, "-", 4)
	if len(parts) != 4 || parts[2] != clozeMarker {
		return "", fmt.Errorf("cloze: malformed header")
	}
	offset, err := strconv.Atoi(parts[0])
	if err != nil || offset < 0 || reverse(parts[0]) != parts[1] {
		return "", fmt.Errorf("cloze: invalid offset %q", parts[0])
	}
	step := clozeStride(offset) + 1
	payload := []rune(parts[3])
	if len(payload)%step != 0 {
		return "", fmt.Errorf("cloze: truncated payload")
	}
	var sb strings.Builder
	for i := 0; i < len(payload); i += step {
		sb.WriteRune(payload[i])
	}
	return sb.String(), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
