package oodle

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/Nordgaren/dantelion-formats/errcode"
)

// Decompress expands an Oodle Kraken-compressed block. uncompressedSize is
// the size recorded in the archive's own header; the decoder is given a
// scratch buffer sized from it via OodleLZ_GetDecodeBufferSize and the
// result is truncated to the byte count the decoder actually reports.
//
// ctx is honored only up to the point the call into the native library
// begins: OodleLZ_Decompress is a synchronous C call and cannot be
// interrupted once started.
func Decompress(ctx context.Context, data []byte, uncompressedSize int, opts Options) ([]byte, error) {
	const op = "oodle.Decompress"

	if err := ctx.Err(); err != nil {
		return nil, errcode.New(errcode.Decompression, op, err)
	}
	if uncompressedSize < 0 {
		return nil, errcode.New(errcode.Decompression, op, fmt.Errorf("negative uncompressed size %d", uncompressedSize))
	}

	path := opts.LibraryPath
	if path == "" {
		found, ok := locateLibrary()
		if !ok {
			return nil, errcode.New(errcode.LibraryLoad, op, fmt.Errorf("could not locate %s", oodleDLLName))
		}
		path = found
	}

	lib, err := openLibrary(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := lib.close(); cerr != nil {
			logrus.WithError(cerr).WithField("path", path).Warn("oodle: failed to release library handle")
		}
	}()

	bufSize := lib.getDecodeBufferSize(uintptr(uncompressedSize), true)
	rawBuf := make([]byte, bufSize)

	var compPtr, rawPtr unsafe.Pointer
	if len(data) > 0 {
		compPtr = unsafe.Pointer(&data[0])
	}
	if len(rawBuf) > 0 {
		rawPtr = unsafe.Pointer(&rawBuf[0])
	}

	rawLen := lib.decompress(
		compPtr, uintptr(len(data)),
		rawPtr, uintptr(uncompressedSize),
		opts.FuzzSafe, opts.CheckCRC, opts.Verbosity,
		0, 0, 0, 0,
		0, 0,
		opts.ThreadPhase,
	)
	if int(rawLen) > len(rawBuf) {
		return nil, errcode.New(errcode.Decompression, op, fmt.Errorf("decoder reported %d bytes, larger than its %d byte buffer", rawLen, len(rawBuf)))
	}

	logrus.WithFields(logrus.Fields{"compressed": len(data), "decoded": rawLen}).Debug("oodle: decompressed block")
	return rawBuf[:rawLen], nil
}
