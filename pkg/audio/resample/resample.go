// Package resample provides sample-rate conversion with use-case-aware
// method selection and a process-wide FIFO cache of recent conversions,
// grounded on [audio.ResampleMono16]/[audio.ResampleStereo16] (the linear
// method) and generalized to the full method set the pipeline needs:
// quality-tiered polyphase and windowed-sinc resampling for ASR, and an
// adaptive chooser that picks a method from the conversion ratio.
package resample

import (
	"crypto/md5"
	"fmt"
	"math"
	"sync"

	"github.com/irenevoice/irenecore/pkg/audio"
)

// Method selects the resampling algorithm.
type Method string

const (
	// MethodLinear is the fastest method: linear interpolation between
	// adjacent samples. Preferred for low-latency gating paths.
	MethodLinear Method = "linear"

	// MethodPolyphase is a balanced method: a short symmetric FIR low-pass
	// filter applied to the input before linear interpolation, attenuating the aliasing that
	// linear interpolation lets through without the cost of a full
	// windowed-sinc kernel.
	MethodPolyphase Method = "polyphase"

	// MethodSincKaiser is the highest-quality method: a windowed-sinc
	// interpolation kernel (Kaiser window) for transcription-grade
	// fidelity.
	MethodSincKaiser Method = "sinc_kaiser"

	// MethodAdaptive defers to [SelectForRatio] based on the conversion
	// ratio rather than naming a fixed algorithm.
	MethodAdaptive Method = "adaptive"
)

// UseCase names the pipeline stage requesting a conversion, used by
// [SelectForUseCase] to pick a latency/quality tradeoff.
type UseCase string

const (
	UseCaseVoiceTrigger UseCase = "voice_trigger"
	UseCaseASR          UseCase = "asr"
	UseCaseGeneral      UseCase = "general"
)

// SelectForUseCase picks a [Method] for the given use case and conversion
// ratio (dstRate/srcRate, or srcRate/dstRate — callers pass the larger over
// the smaller so ratio is always ≥ 1).
//
//   - voice_trigger: latency-optimized; ratio ≤ 2 → linear, else polyphase.
//   - asr: quality-optimized; ratio ≤ 1.5 → sinc_kaiser; ≤ 3 → polyphase;
//     else adaptive (which in turn picks polyphase for the extreme case,
//     since a sinc kernel over a >3x ratio is prohibitively expensive for a
//     real-time pipeline).
//   - general: balanced — ratio ≤ 2 → linear, else polyphase.
func SelectForUseCase(useCase UseCase, ratio float64) Method {
	if ratio < 1 {
		ratio = 1 / ratio
	}
	switch useCase {
	case UseCaseVoiceTrigger:
		if ratio <= 2 {
			return MethodLinear
		}
		return MethodPolyphase
	case UseCaseASR:
		switch {
		case ratio <= 1.5:
			return MethodSincKaiser
		case ratio <= 3:
			return MethodPolyphase
		default:
			return MethodAdaptive // Converter.Convert resolves this to polyphase for extreme ratios
		}
	default: // UseCaseGeneral and anything unrecognized
		if ratio <= 2 {
			return MethodLinear
		}
		return MethodPolyphase
	}
}

// cacheKey identifies a cached conversion result.
type cacheKey struct {
	payloadHash [16]byte
	srcRate     int
	tgtRate     int
	channels    int
	method      Method
}

// entry is a cached conversion result.
type entry struct {
	key   cacheKey
	frame audio.AudioFrame
}

// Cache is a process-wide FIFO cache of recent resampling results, keyed by
// (md5 of the first 1KB of the payload, src rate, target rate, channels,
// method). It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	maxSize  int
	order    []cacheKey
	entries  map[cacheKey]audio.AudioFrame
}

// defaultMaxSize is the default maximum number of cached conversions.
const defaultMaxSize = 100

// NewCache creates a [Cache] with the given maximum size. A maxSize ≤ 0
// uses [defaultMaxSize].
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &Cache{
		maxSize: maxSize,
		entries: make(map[cacheKey]audio.AudioFrame),
	}
}

func keyFor(payload []byte, srcRate, tgtRate, channels int, method Method) cacheKey {
	n := len(payload)
	if n > 1024 {
		n = 1024
	}
	return cacheKey{
		payloadHash: md5.Sum(payload[:n]),
		srcRate:     srcRate,
		tgtRate:     tgtRate,
		channels:    channels,
		method:      method,
	}
}

// Get looks up a previously cached conversion result.
func (c *Cache) Get(payload []byte, srcRate, tgtRate, channels int, method Method) (audio.AudioFrame, bool) {
	k := keyFor(payload, srcRate, tgtRate, channels, method)
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.entries[k]
	return f, ok
}

// Put stores a conversion result, evicting the oldest entry (FIFO) if the
// cache is at capacity.
func (c *Cache) Put(payload []byte, srcRate, tgtRate, channels int, method Method, result audio.AudioFrame) {
	k := keyFor(payload, srcRate, tgtRate, channels, method)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[k]; !exists {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, k)
	}
	c.entries[k] = result
}

// Converter performs cached, use-case-aware sample-rate conversion.
type Converter struct {
	cache *Cache
}

// NewConverter creates a Converter with its own [Cache] of the default size.
func NewConverter() *Converter {
	return &Converter{cache: NewCache(defaultMaxSize)}
}

// NewConverterWithCache creates a Converter backed by an externally owned
// cache, allowing multiple converters (e.g. one per component) to share a
// single process-wide cache as the spec requires.
func NewConverterWithCache(cache *Cache) *Converter {
	return &Converter{cache: cache}
}

// Convert resamples frame to targetRate/targetChannels using method (or the
// method implied by [MethodAdaptive] resolved via [SelectForUseCase] with
// [UseCaseGeneral] when method is empty). The identity case (frame already
// matches the target) returns a metadata-stamped copy without doing any
// work: bytes are identical and metadata carries resampling_applied=false.
func (c *Converter) Convert(frame audio.AudioFrame, targetRate, targetChannels int, method Method) audio.AudioFrame {
	if frame.SampleRate == targetRate && frame.Channels == targetChannels {
		return frame.WithMetadata("resampling_applied", false)
	}

	if method == "" || method == MethodAdaptive {
		ratio := float64(targetRate) / float64(frame.SampleRate)
		method = SelectForUseCase(UseCaseGeneral, ratio)
	}

	if cached, ok := c.cache.Get(frame.Data, frame.SampleRate, targetRate, targetChannels, method); ok {
		return cached.WithMetadata("resampling_applied", true).WithMetadata("cache_hit", true)
	}

	out := convertWithMethod(frame, targetRate, targetChannels, method)
	out = out.WithMetadata("resampling_applied", true).WithMetadata("cache_hit", false)

	c.cache.Put(frame.Data, frame.SampleRate, targetRate, targetChannels, method, out)
	return out
}

func convertWithMethod(frame audio.AudioFrame, targetRate, targetChannels int, method Method) audio.AudioFrame {
	data := frame.Data
	rate := frame.SampleRate

	if rate != targetRate {
		switch method {
		case MethodSincKaiser:
			data = sincResampleMono(data, rate, targetRate)
		case MethodPolyphase:
			data = polyphaseResampleMono(data, rate, targetRate)
		default: // MethodLinear and any unrecognized value
			data = audio.ResampleMono16(data, rate, targetRate)
		}
		rate = targetRate
	}

	channels := frame.Channels
	if channels != targetChannels {
		if channels == 1 && targetChannels == 2 {
			data = audio.MonoToStereo(data)
		} else if channels == 2 && targetChannels == 1 {
			data = audio.StereoToMono(data)
		}
		channels = targetChannels
	}

	return audio.AudioFrame{
		Data:       data,
		SampleRate: rate,
		Channels:   channels,
		Timestamp:  frame.Timestamp,
		Encoding:   frame.Encoding,
	}
}

// polyphaseResampleMono applies a short 3-tap symmetric low-pass smoothing
// pass before linear interpolation, attenuating aliasing that pure linear
// interpolation would let through. It is "polyphase" in spirit (filter
// coefficients are fixed per output sample phase) without the full
// multi-branch filter bank a production DSP library would use.
func polyphaseResampleMono(pcm []byte, srcRate, dstRate int) []byte {
	smoothed := lowPassSmooth(pcm)
	return audio.ResampleMono16(smoothed, srcRate, dstRate)
}

// lowPassSmooth applies a 3-tap [1,2,1]/4 FIR filter to 16-bit mono PCM.
func lowPassSmooth(pcm []byte) []byte {
	n := len(pcm) / 2
	if n < 3 {
		return pcm
	}
	out := make([]byte, len(pcm))
	samples := make([]int16, n)
	for i := range n {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	for i := range n {
		prev, next := samples[i], samples[i]
		if i > 0 {
			prev = samples[i-1]
		}
		if i < n-1 {
			next = samples[i+1]
		}
		v := (int32(prev) + 2*int32(samples[i]) + int32(next)) / 4
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// sincKaiserHalfWidth is the number of input samples considered on each side
// of the interpolation point for the windowed-sinc kernel.
const sincKaiserHalfWidth = 4

// kaiserBeta controls the Kaiser window's sidelobe suppression.
const kaiserBeta = 6.0

// sincResampleMono resamples 16-bit mono PCM using a windowed-sinc kernel
// (Kaiser window), producing substantially less aliasing than linear
// interpolation at the cost of more computation per output sample.
func sincResampleMono(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	get := func(i int) float64 {
		if i < 0 || i >= srcSamples {
			return 0
		}
		return float64(int16(pcm[i*2]) | int16(pcm[i*2+1])<<8)
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		center := int(math.Floor(srcPos))
		frac := srcPos - float64(center)

		var acc, weightSum float64
		for tap := -sincKaiserHalfWidth + 1; tap <= sincKaiserHalfWidth; tap++ {
			idx := center + tap
			x := float64(tap) - frac
			w := sincKernel(x, sincKaiserHalfWidth) * kaiserWindow(x, sincKaiserHalfWidth, kaiserBeta)
			acc += get(idx) * w
			weightSum += w
		}
		var sample float64
		if weightSum != 0 {
			sample = acc / weightSum
		}
		sample = math.Max(-32768, math.Min(32767, sample))
		v := int16(sample)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

func sincKernel(x float64, halfWidth int) float64 {
	if x == 0 {
		return 1
	}
	if math.Abs(x) >= float64(halfWidth) {
		return 0
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func kaiserWindow(x float64, halfWidth int, beta float64) float64 {
	n := float64(halfWidth)
	if math.Abs(x) > n {
		return 0
	}
	ratio := x / n
	arg := 1 - ratio*ratio
	if arg < 0 {
		arg = 0
	}
	return besselI0(beta*math.Sqrt(arg)) / besselI0(beta)
}

// besselI0 approximates the zeroth-order modified Bessel function of the
// first kind via its power series, sufficient precision for window shaping.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	halfX := x / 2
	for k := 1; k <= 20; k++ {
		term *= (halfX * halfX) / float64(k*k)
		sum += term
		if term < 1e-12 {
			break
		}
	}
	return sum
}

// Format is a convenience pairing of rate and channel count, mirroring
// [audio.Format] for callers that only import the resample package.
type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}
