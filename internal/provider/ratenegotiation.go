// Package provider implements the domain-component coordination concerns
// spec §4.7 describes on top of the narrow provider interfaces in
// pkg/provider/*: sample-rate negotiation, provider state reset on
// transcription/resampling failure, and donation-manifest loading during
// component post-initialization.
package provider

import (
	"github.com/irenevoice/irenecore/internal/core"
)

// RatePreferrer is an optional capability a provider may implement to
// declare which sample rates it prefers, best first. Providers that don't
// implement it are treated as rate-agnostic.
type RatePreferrer interface {
	PreferredSampleRates() []int
}

// RateSupporter is an optional capability a provider may implement to
// report whether it can accept a given sample rate natively (without the
// caller resampling first).
type RateSupporter interface {
	SupportsSampleRate(rate int) bool
}

// RateDecision is the outcome of [NegotiateRate]: the rate audio should be
// delivered to the provider at, and whether the caller must resample to
// reach it.
type RateDecision struct {
	TargetRate   int
	NeedsResample bool
}

// NegotiateRate decides the sample rate audio should be delivered to a
// provider at, following spec §4.7's authority order:
//
//  1. If targetRate is configured (non-zero), it is authoritative: audio is
//     resampled to it regardless of provider preference. If allowResampling
//     is false and inputRate != targetRate, that mismatch is fatal.
//  2. Otherwise, if the provider natively supports inputRate, use it as-is.
//  3. Otherwise, if the provider declares a preferred rate, resample to its
//     first preference (fatal instead, under the same allowResampling==false
//     rule).
//  4. As a last resort, force-resample to 16kHz.
//
// provider may be nil or may implement neither optional capability; both
// are treated as "no preference expressed".
func NegotiateRate(inputRate, targetRate int, allowResampling bool, provider any) (RateDecision, error) {
	if targetRate != 0 {
		if inputRate == targetRate {
			return RateDecision{TargetRate: targetRate}, nil
		}
		if !allowResampling {
			return RateDecision{}, core.NewError(core.KindSampleRateMismatch,
				"configured target_sample_rate does not match input rate and allow_resampling is false", nil)
		}
		return RateDecision{TargetRate: targetRate, NeedsResample: true}, nil
	}

	if supporter, ok := provider.(RateSupporter); ok && supporter.SupportsSampleRate(inputRate) {
		return RateDecision{TargetRate: inputRate}, nil
	}

	if preferrer, ok := provider.(RatePreferrer); ok {
		if prefs := preferrer.PreferredSampleRates(); len(prefs) > 0 {
			if !allowResampling && prefs[0] != inputRate {
				return RateDecision{}, core.NewError(core.KindSampleRateMismatch,
					"provider does not support the input rate and allow_resampling is false", nil)
			}
			return RateDecision{TargetRate: prefs[0], NeedsResample: prefs[0] != inputRate}, nil
		}
	}

	const lastResortRate = 16000
	if inputRate == lastResortRate {
		return RateDecision{TargetRate: lastResortRate}, nil
	}
	if !allowResampling {
		return RateDecision{}, core.NewError(core.KindSampleRateMismatch,
			"no provider rate preference available and allow_resampling is false", nil)
	}
	return RateDecision{TargetRate: lastResortRate, NeedsResample: true}, nil
}
