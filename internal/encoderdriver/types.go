// Package encoderdriver launches external encoder processes, feeds them
// YUV4MPEG2 on standard input, and parses frame-progress from standard
// error. One concrete argument builder and progress pattern exists per
// supported encoder family.
package encoderdriver

import "fmt"

// Family identifies an encoder binary and its argument dialect.
type Family int

const (
	AOM Family = iota
	RAV1E
	SVTAV1
	X264
	X265
	VPX
	VVENC
	FFmpeg
)

func (f Family) String() string {
	switch f {
	case AOM:
		return "aom"
	case RAV1E:
		return "rav1e"
	case SVTAV1:
		return "svt-av1"
	case X264:
		return "x264"
	case X265:
		return "x265"
	case VPX:
		return "vpx"
	case VVENC:
		return "vvenc"
	case FFmpeg:
		return "ffmpeg"
	default:
		return "unknown"
	}
}

// OutputExtension returns the scene artifact extension for the family, per
// the ^\d{5}\.<ext>$ naming contract.
func (f Family) OutputExtension() string {
	switch f {
	case AOM, RAV1E, SVTAV1, VPX:
		return "ivf"
	case X264:
		return "264"
	case X265:
		return "hevc"
	case FFmpeg:
		return "mkv"
	default:
		return "bin"
	}
}

// SupportsPhotonNoise reports whether the family accepts a grain table via
// a CLI flag. Families that don't support it fail with PhotonNoiseUnsupported.
func (f Family) SupportsPhotonNoise() bool {
	switch f {
	case SVTAV1, AOM, RAV1E:
		return true
	default:
		return false
	}
}

func (f Family) binary() string {
	switch f {
	case AOM:
		return "aomenc"
	case RAV1E:
		return "rav1e"
	case SVTAV1:
		return "SvtAv1EncApp"
	case X264:
		return "x264"
	case X265:
		return "x265"
	case VPX:
		return "vpxenc"
	case VVENC:
		return "vvencapp"
	case FFmpeg:
		return "ffmpeg"
	default:
		return "unknown"
	}
}

// grainFlag returns the family-specific CLI flag used to point the encoder
// at a generated photon-noise grain table.
func (f Family) grainFlag() string {
	switch f {
	case SVTAV1:
		return "--fgs-table"
	case AOM:
		return "--film-grain-table"
	case RAV1E:
		return "--photon-noise-table"
	default:
		return ""
	}
}

// PassPlan describes how many passes an encode runs and, for a specific
// single-pass invocation, which one this is. Total is always >= 1. Only,
// when non-nil, restricts the driver to running exactly that pass instead
// of 1..Total.
type PassPlan struct {
	Total int  `json:"total"`
	Only  *int `json:"only,omitempty"`
}

// AllPasses returns a plan that runs every pass from 1 to n in sequence.
func AllPasses(n int) PassPlan {
	return PassPlan{Total: n}
}

// SpecificPass returns a plan that runs only the given pass of n.
func SpecificPass(pass, n int) PassPlan {
	return PassPlan{Total: n, Only: &pass}
}

// Passes enumerates the concrete pass numbers this plan runs, in order.
func (p PassPlan) Passes() []int {
	if p.Only != nil {
		return []int{*p.Only}
	}
	out := make([]int, 0, p.Total)
	for i := 1; i <= p.Total; i++ {
		out = append(out, i)
	}
	if len(out) == 0 {
		out = []int{1}
	}
	return out
}

// GrainParams is the set of inputs a photon-noise grain table is generated
// from. Two configs with identical GrainParams share a generated table.
type GrainParams struct {
	ISO       int     `json:"iso"`
	ChromaISO int     `json:"chroma_iso"`
	Width     uint32  `json:"width"`
	Height    uint32  `json:"height"`
	CY        float64 `json:"c_y"`
	CCB       float64 `json:"ccb"`
	CCR       float64 `json:"ccr"`
}

// key returns a stable string used to hash GrainParams into a filename.
func (g GrainParams) key() string {
	return fmt.Sprintf("%d-%d-%d-%d-%.6f-%.6f-%.6f", g.ISO, g.ChromaISO, g.Width, g.Height, g.CY, g.CCB, g.CCR)
}

// EncoderConfig is Project.encoder: a tagged variant identifying the
// encoder family, a keyed map of CLI parameters, a pass plan, and optional
// photon-noise grain parameters.
type EncoderConfig struct {
	Family Family            `json:"family"`
	Params map[string]string `json:"params,omitempty"`
	Pass   PassPlan          `json:"pass"`
	Grain  *GrainParams      `json:"grain,omitempty"`
}

// ClipParams is the subset of clip metadata an encoder invocation needs to
// build its argument vector and YUV4MPEG2 header. Kept decoupled from
// project.ClipInfo to avoid an import cycle between encoderdriver and the
// packages that embed EncoderConfig into a Project.
type ClipParams struct {
	Width                   uint32
	Height                  uint32
	FPSNum                  int64
	FPSDen                  int64
	BitDepth                uint8
	ChromaSubsampling       string
	ColorPrimaries          string
	TransferCharacteristics string
	MatrixCoefficients      string
}

// Result is the outcome of one encoder pass: {encoder_tag,
// effective_arguments, exit_status, captured_stdout, captured_stderr}.
// CPUTime and PeakRSSBytes are carried for forward compatibility but are
// always zero, matching "previously measured, now left at zero."
type Result struct {
	EncoderTag         string
	EffectiveArguments []string
	ExitStatus         int
	CapturedStdout     string
	CapturedStderr     string
	CPUTime            int64
	PeakRSSBytes       uint64
}

// Success reports whether the pass exited with status zero.
func (r Result) Success() bool {
	return r.ExitStatus == 0
}

// FailedError presents a non-zero Result as an error.
type FailedError struct {
	Result Result
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("encoder %s exited with status %d", e.Result.EncoderTag, e.Result.ExitStatus)
}

// PhotonNoiseUnsupportedError is returned when grain parameters are set on
// an encoder family that has no grain-table flag.
type PhotonNoiseUnsupportedError struct {
	Family Family
}

func (e *PhotonNoiseUnsupportedError) Error() string {
	return fmt.Sprintf("encoder family %s does not support photon-noise grain tables", e.Family)
}
