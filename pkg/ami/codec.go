package ami

import "strings"

// Decode turns one terminated block into a Record.
//
// Blocks whose first line is "Response: Follows" carry free-form command
// output and are decoded with the Follows grammar; everything else is a
// plain list of "Key: Value" lines. A block with nothing parseable yields an
// empty Record.
func Decode(block string) Record {
	if firstLine(block) == followsFirstLine {
		return decodeFollows(block)
	}
	return decodeSimple(block)
}

// DecodeStrict is Decode, but reports a *DecodeError when the block
// produced no headers at all.
func DecodeStrict(block string) (Record, error) {
	r := Decode(block)
	if r.Len() == 0 {
		return r, &DecodeError{Block: block}
	}
	return r, nil
}

func firstLine(block string) string {
	if i := strings.Index(block, lineTerminator); i >= 0 {
		return block[:i]
	}
	return block
}

// decodeSimple splits each non-empty line at the first ": ". A line with no
// separator becomes a key with an empty value.
func decodeSimple(block string) Record {
	var r Record
	for _, line := range strings.Split(block, lineTerminator) {
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, headerSeparator)
		r.Set(key, value)
	}
	return r
}

// decodeFollows strips the end marker and splits at the last remaining CRLF.
// The head is parsed as headers, the tail becomes Results. A body spread over
// several CRLF lines therefore keeps only its last line in Results and the
// earlier lines show up as headers with empty values.
func decodeFollows(block string) Record {
	text := block
	if i := strings.LastIndex(text, EndCommandMarker); i >= 0 {
		text = text[:i] + strings.TrimLeft(text[i+len(EndCommandMarker):], "\r\n")
	}
	text = strings.TrimRight(text, "\r\n")

	head, results := text, ""
	if sep := strings.LastIndex(text, lineTerminator); sep >= 0 {
		head = text[:sep]
		results = strings.TrimLeft(text[sep+len(lineTerminator):], " \t\r\n")
	}

	r := decodeSimple(head)
	r.Set(HeaderResults, results)
	return r
}
