package json

// StripComments blanks out "//", "#" and "/* */" comments outside string
// literals. Comment bytes are replaced by spaces and newlines are kept, so
// offsets reported by the decoder still point at the original text.
func StripComments(content []byte) []byte {
	output := make([]byte, len(content))
	copy(output, content)
	const (
		stateContent = iota
		stateString
		stateStringEscape
		stateLineComment
		stateBlockComment
	)
	state := stateContent
	for i := 0; i < len(output); i++ {
		x := output[i]
		switch state {
		case stateContent:
			switch {
			case x == '"':
				state = stateString
			case x == '#':
				state = stateLineComment
				output[i] = ' '
			case x == '/' && i+1 < len(output) && output[i+1] == '/':
				state = stateLineComment
				output[i], output[i+1] = ' ', ' '
				i++
			case x == '/' && i+1 < len(output) && output[i+1] == '*':
				state = stateBlockComment
				output[i], output[i+1] = ' ', ' '
				i++
			}
		case stateString:
			switch x {
			case '\\':
				state = stateStringEscape
			case '"':
				state = stateContent
			}
		case stateStringEscape:
			state = stateString
		case stateLineComment:
			if x == '\n' {
				state = stateContent
			} else {
				output[i] = ' '
			}
		case stateBlockComment:
			if x == '*' && i+1 < len(output) && output[i+1] == '/' {
				state = stateContent
				output[i], output[i+1] = ' ', ' '
				i++
			} else if x != '\n' {
				output[i] = ' '
			}
		}
	}
	return output
}
