/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: protocol.go
Description: Line protocol spoken by instrumented targets. A target reports its scalar score
as "SCORE:<int>", the bitmap length as "TOT:<groups>" and the bitmap itself as "TRACE:"
followed by 4*groups raw big-endian bytes.
*/

package coverage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	// ErrNoScore is returned when target output carries no SCORE line.
	ErrNoScore = errors.New("no score in target output")
	// ErrNoTrace is returned when target output carries no complete TOT/TRACE pair.
	ErrNoTrace = errors.New("no trace in target output")
)

const (
	scorePrefix = "SCORE:"
	totalPrefix = "TOT:"
	tracePrefix = "TRACE:"
)

// Report is a decoded target report.
type Report struct {
	Score int
	Trace Bitmap
}

// DecodeScore extracts the first SCORE value from out.
func DecodeScore(out []byte) (int, error) {
	for _, line := range bytes.Split(out, []byte("\n")) {
		if !bytes.HasPrefix(line, []byte(scorePrefix)) {
			continue
		}
		v, err := strconv.Atoi(string(bytes.TrimSpace(line[len(scorePrefix):])))
		if err != nil {
			return 0, fmt.Errorf("%w: bad score %q", ErrNoScore, line)
		}
		return v, nil
	}
	return 0, ErrNoScore
}

// DecodeTrace extracts the bitmap from out. The TOT line must precede TRACE. The trace
// payload is read as raw bytes, so it may itself contain newlines.
func DecodeTrace(out []byte) (Bitmap, error) {
	groups := -1
	for pos := 0; pos < len(out); {
		end := bytes.IndexByte(out[pos:], '\n')
		lineEnd := len(out)
		if end >= 0 {
			lineEnd = pos + end
		}
		line := out[pos:lineEnd]

		switch {
		case bytes.HasPrefix(line, []byte(totalPrefix)):
			n, err := strconv.Atoi(string(bytes.TrimSpace(line[len(totalPrefix):])))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad total %q", ErrNoTrace, line)
			}
			groups = n
		case bytes.HasPrefix(line, []byte(tracePrefix)):
			if groups < 0 {
				return nil, fmt.Errorf("%w: TRACE before TOT", ErrNoTrace)
			}
			payload := out[pos+len(tracePrefix):]
			if len(payload) < 4*groups {
				return nil, fmt.Errorf("%w: trace has %d bytes, want %d", ErrNoTrace, len(payload), 4*groups)
			}
			b := NewBitmap(groups)
			for i := range b {
				b[i] = binary.BigEndian.Uint32(payload[4*i:])
			}
			return b, nil
		}

		if end < 0 {
			break
		}
		pos = lineEnd + 1
	}
	return nil, ErrNoTrace
}

// Decode extracts both score and trace.
func Decode(out []byte) (*Report, error) {
	score, err := DecodeScore(out)
	if err != nil {
		return nil, err
	}
	trace, err := DecodeTrace(out)
	if err != nil {
		return nil, err
	}
	return &Report{Score: score, Trace: trace}, nil
}

// WriteReport writes r in the target protocol. The trace is written last.
func WriteReport(w io.Writer, r *Report) error {
	if _, err := fmt.Fprintf(w, "%s%d\n%s%d\n%s", scorePrefix, r.Score, totalPrefix, len(r.Trace), tracePrefix); err != nil {
		return err
	}
	buf := make([]byte, 4*len(r.Trace))
	for i, g := range r.Trace {
		binary.BigEndian.PutUint32(buf[4*i:], g)
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
