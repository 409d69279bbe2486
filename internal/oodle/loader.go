package oodle

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/Nordgaren/dantelion-formats/errcode"
)

type library struct {
	handle              uintptr
	getDecodeBufferSize func(rawSize uintptr, corruptionPossible bool) uintptr
	decompress          func(
		compBuf unsafe.Pointer, compBufSize uintptr,
		rawBuf unsafe.Pointer, rawLen uintptr,
		fuzzSafe FuzzSafe, checkCRC CheckCRC, verbosity Verbosity,
		decBufBase, decBufSize, fpCallback, callbackUserData uintptr,
		decoderMemory, decoderMemorySize uintptr,
		threadPhase ThreadPhase,
	) uintptr
}

func openLibrary(path string) (*library, error) {
	const op = "oodle.openLibrary"
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errcode.New(errcode.LibraryLoad, op, fmt.Errorf("loading %s: %w", path, err))
	}

	lib := &library{handle: handle}
	purego.RegisterLibFunc(&lib.getDecodeBufferSize, handle, "OodleLZ_GetDecodeBufferSize")
	purego.RegisterLibFunc(&lib.decompress, handle, "OodleLZ_Decompress")
	return lib, nil
}

func (l *library) close() error {
	return purego.Dlclose(l.handle)
}
