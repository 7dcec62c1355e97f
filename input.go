package dtd

import (
	"github.com/lestrrat-go/dtd/encoding"
)

// inputEntity is one frame of the input stack: a decoded character
// buffer plus the cursor into it.
type inputEntity struct {
	buf  []rune
	pos  int
	line int
	col  int

	name     string
	publicID string
	systemID string
	baseURI  string
	external bool
	entity   *Entity
	level    int

	// raw holds the undecoded bytes of an external frame until its
	// text declaration has been processed.
	raw      []byte
	bom      int
	detected string
	declared string

	// constructs opened while this frame was on top and not closed yet
	open int
}

func (in *inputEntity) Key() string {
	if in.entity == nil {
		return ""
	}
	return in.entity.Key()
}

func (in *inputEntity) Name() string {
	return in.name
}

func (in *inputEntity) PublicID() string {
	return in.publicID
}

func (in *inputEntity) SystemID() string {
	return in.systemID
}

func (in *inputEntity) LineNumber() int {
	return in.line
}

func (in *inputEntity) ColumnNumber() int {
	return in.col
}

func (in *inputEntity) IsExternal() bool {
	return in.external
}

// Encoding returns the declared encoding, falling back to the detected
// one.
func (in *inputEntity) Encoding() string {
	if in.declared != "" {
		return in.declared
	}
	if in.detected != "" {
		return in.detected
	}
	if in.external {
		return encoding.UTF8
	}
	return ""
}

func (in *inputEntity) done() bool {
	return in.pos >= len(in.buf)
}

// currentLine returns the text of the line the cursor is on.
func (in *inputEntity) currentLine() string {
	start := min(in.pos, len(in.buf))
	for start > 0 && in.buf[start-1] != '\n' {
		start--
	}
	end := min(in.pos, len(in.buf))
	for end < len(in.buf) && in.buf[end] != '\n' {
		end++
	}
	const maxLine = 80
	if end-start > maxLine {
		start = max(start, in.pos-maxLine/2)
		end = min(end, start+maxLine)
	}
	return string(in.buf[start:end])
}

func newInternalInput(e *Entity) *inputEntity {
	return &inputEntity{
		buf:     []rune(e.Value),
		line:    1,
		col:     1,
		name:    e.Key(),
		baseURI: e.BaseURI,
		entity:  e,
	}
}

// newExternalInput decodes data as far as it can be decoded before the
// text declaration is seen. switchEncoding finishes the job.
func newExternalInput(data []byte, publicID, systemID string) (*inputEntity, error) {
	detected, bom := encoding.Detect(data)
	if !encoding.Supported(detected) {
		return nil, &encodingError{err: ErrUnsupportedEncoding, name: detected}
	}

	in := &inputEntity{
		line:     1,
		col:      1,
		name:     systemID,
		publicID: publicID,
		systemID: systemID,
		baseURI:  systemID,
		external: true,
		raw:      data,
		bom:      bom,
		detected: detected,
	}

	switch detected {
	case encoding.UTF16LE, encoding.UTF16BE:
		b, err := encoding.DecodeUTF16(detected, data[bom:])
		if err != nil {
			return nil, &encodingError{err: ErrEncoding, name: detected, cause: err}
		}
		in.buf = normalizeNewlines([]rune(string(b)))
	default:
		in.buf = normalizeNewlines([]rune(string(data[bom:])))
	}
	return in, nil
}

// normalizeNewlines turns \r\n and lone \r into \n, in place.
func normalizeNewlines(buf []rune) []rune {
	j := 0
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		if c == '\r' {
			if i+1 < len(buf) && buf[i+1] == '\n' {
				continue
			}
			c = '\n'
		}
		buf[j] = c
		j++
	}
	return buf[:j]
}

type encodingError struct {
	err   error
	name  string
	cause error
}

func (e *encodingError) Error() string {
	msg := e.err.Error()
	if e.name != "" {
		msg += " (" + e.name + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *encodingError) Unwrap() error {
	return e.err
}
