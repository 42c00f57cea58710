package session

import (
	"errors"

	"github.com/synaptica-ai/oncorisk/pkg/riskclient"
)

var (
	// ErrInvalidState is returned when an explanation is requested while no
	// current verdict exists. It is the same sentinel the client uses.
	ErrInvalidState = riskclient.ErrInvalidState

	// ErrRequestFailed wraps every failed call to the risk model.
	ErrRequestFailed = riskclient.ErrRequestFailed

	// ErrStaleResult is returned for a response that settled after the form
	// or verdict it was computed from had been superseded. Nothing is applied.
	ErrStaleResult = errors.New("stale result discarded")

	ErrClosed = errors.New("session closed")
)
