// Package io provides reference devices for the M-20 processor: the card
// reader and punch, the line printer, the magnetic drum, and the magnetic
// tape with its formatter. Devices keep their media in memory, and drums
// and tapes marshal to a file system.
package io

import (
	"errors"

	"github.com/ezrec/m20/translate"
)

var f = translate.From

var (
	ErrZoneRange   = errors.New(f("transfer exceeds the device zone"))
	ErrMediaSyntax = errors.New(f("media file syntax"))
)

// ErrMedia is an error at a line of a media file.
type ErrMedia struct {
	Name   string
	LineNo int
	Err    error
}

func (err *ErrMedia) Error() string {
	return f("%v:%d %v", err.Name, err.LineNo, err.Err)
}

func (err *ErrMedia) Unwrap() error {
	return err.Err
}
