// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// UnknownLine marks a frame whose source line was not reported.
const UnknownLine = -1

var stackLinePattern = regexp.MustCompile(`^\s*at\s+([\w/.$]+)\((.+)\)\s*$`)

// Frame is one level of a remote failure's origin.
type Frame struct {
	Type   string
	Method string
	Source string
	Line   int
}

func (f Frame) String() string {
	ref := f.Method
	if f.Type != "" {
		ref = f.Type + "." + f.Method
	}
	if f.Line == UnknownLine {
		return fmt.Sprintf("%s(%s)", ref, f.Source)
	}
	return fmt.Sprintf("%s(%s:%d)", ref, f.Source, f.Line)
}

// ParseRemoteError builds a RemoteCallError from the body of a failed call.
//
// A body starting with '<' is an error page and becomes the message as is.
// Otherwise the first line is the message and every following line shaped
// like "at pkg.Type.method(Source:42)" becomes a frame. Lines that are not
// frames are kept as part of the message.
func ParseRemoteError(body string) *RemoteCallError {
	if strings.HasPrefix(body, "<") {
		return &RemoteCallError{Message: body}
	}

	lines := strings.Split(strings.TrimRight(body, "\r\n"), "\n")
	var msg strings.Builder
	msg.WriteString(strings.TrimSuffix(lines[0], "\r"))

	var frames []Frame
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if f, ok := parseFrame(line); ok {
			frames = append(frames, f)
			continue
		}
		msg.WriteByte('\n')
		msg.WriteString(line)
	}
	return &RemoteCallError{Message: msg.String(), Frames: frames}
}

func parseFrame(line string) (Frame, bool) {
	m := stackLinePattern.FindStringSubmatch(line)
	if m == nil {
		return Frame{}, false
	}

	var f Frame
	ref := m[1]
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		f.Type, f.Method = ref[:i], ref[i+1:]
	} else {
		f.Method = ref
	}

	loc := m[2]
	i := strings.LastIndexByte(loc, ':')
	if i < 0 {
		f.Source, f.Line = loc, UnknownLine
		return f, true
	}
	f.Source = strings.TrimSpace(loc[:i])
	n, err := strconv.Atoi(strings.TrimSpace(loc[i+1:]))
	if err != nil {
		n = UnknownLine
	}
	f.Line = n
	return f, true
}
