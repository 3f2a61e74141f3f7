// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_capture

// Profile is the container/encoding handed to the recording buffer.
type Profile struct {
	MimeType string
	Video    bool
}

// ProfileWAV is the unconditional last-resort profile. Every session can
// always be rendered as PCM WAV.
var ProfileWAV = Profile{MimeType: "audio/wav", Video: false}

// profilePriority is probed in order. Video-capable entries are only
// considered when the source actually carries video.
var profilePriority = []Profile{
	{MimeType: "video/webm;codecs=vp8,opus", Video: true},
	{MimeType: "video/webm", Video: true},
	{MimeType: "audio/webm;codecs=opus", Video: false},
	{MimeType: "audio/webm", Video: false},
	ProfileWAV,
}

// SelectProfile picks the preferred encoding profile for the given capture
// kind by probing supported profiles in priority order. The probe may be nil,
// in which case only the last-resort profile is considered supported.
func SelectProfile(kind Kind, supported func(Profile) bool) Profile {
	for _, p := range profilePriority {
		if p.Video && kind != KindVideoAudio {
			continue
		}
		if p == ProfileWAV {
			return p
		}
		if supported != nil && supported(p) {
			return p
		}
	}
	return ProfileWAV
}
