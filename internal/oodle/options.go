// Package oodle binds the Oodle Kraken decompressor (oo2core_6_win64.dll)
// at runtime via purego, without cgo. The library ships with every Elden
// Ring and Sekiro install; this package loads it at decode time and only
// ever decodes with it, it never ships the library itself.
package oodle

// FuzzSafe controls whether OodleLZ_Decompress defends against malformed
// input at a performance cost.
type FuzzSafe int32

const (
	FuzzSafeNo  FuzzSafe = 0
	FuzzSafeYes FuzzSafe = 1
)

// CheckCRC controls whether the decoder verifies the embedded CRC of each
// decoded block.
type CheckCRC int32

const (
	CheckCRCNo     CheckCRC = 0
	CheckCRCYes    CheckCRC = 1
	CheckCRCForce32 CheckCRC = 0x40000000
)

// Verbosity controls the decoder's internal logging; it has no effect on
// the returned bytes.
type Verbosity int32

const (
	VerbosityNone    Verbosity = 0
	VerbosityMinimal Verbosity = 1
	VerbositySome    Verbosity = 2
	VerbosityLots    Verbosity = 3
)

// ThreadPhase controls which phase(s) of a threaded decode to run; callers
// decoding synchronously always want ThreadPhaseAll.
type ThreadPhase int32

const (
	ThreadPhase1   ThreadPhase = 1
	ThreadPhase2   ThreadPhase = 2
	ThreadPhaseAll ThreadPhase = 3
)

// Options configures a Decompress call. The zero value is not the usual
// configuration (it leaves FuzzSafe off and ThreadPhase unset); use
// DefaultOptions for that.
type Options struct {
	FuzzSafe    FuzzSafe
	CheckCRC    CheckCRC
	Verbosity   Verbosity
	ThreadPhase ThreadPhase

	// LibraryPath overrides automatic Steam-install discovery of
	// oo2core_6_win64.dll. Leave empty to search the working directory
	// and, on Windows only, the registry and the Steam library folders.
	LibraryPath string
}

// DefaultOptions matches the call Dantelion archives are decoded with.
func DefaultOptions() Options {
	return Options{
		FuzzSafe:    FuzzSafeYes,
		CheckCRC:    CheckCRCNo,
		Verbosity:   VerbosityNone,
		ThreadPhase: ThreadPhaseAll,
	}
}
