package main

import (
	"errors"
	"strings"
	"time"

	"lab-compare-be/internal/dto"
)

// parseLine turns one terminal line into an intake event. Anything that is
// not a command is sent as plain text.
func parseLine(line, userID string, now time.Time) (event dto.IntakeEvent, quit bool, err error) {
	line = strings.TrimSpace(line)
	event = dto.IntakeEvent{UserID: userID, ReceivedAt: now}

	command, arg, _ := strings.Cut(line, " ")
	switch strings.TrimPrefix(command, "/") {
	case "quit", "exit":
		return event, true, nil
	case "start":
		event.Kind = dto.IntakeEventStart
	case "cancel":
		event.Kind = dto.IntakeEventCancel
	case "doc":
		path := strings.TrimSpace(arg)
		if path == "" {
			return event, false, errors.New("usage: doc <path>")
		}
		event.Kind = dto.IntakeEventDocument
		event.Document = dto.NewFileDocument(path)
	default:
		event.Kind = dto.IntakeEventText
		event.Text = line
	}
	return event, false, nil
}
