package deepgram

type Voice string

const (
	VoiceAsteria Voice = "aura-asteria-en"
	VoiceLuna    Voice = "aura-luna-en"
	VoiceStella  Voice = "aura-stella-en"
	VoiceAthena  Voice = "aura-athena-en"
	VoiceOrion   Voice = "aura-orion-en"
	VoiceArcas   Voice = "aura-arcas-en"

	defaultVoice = VoiceAsteria
)

func GetAvailableVoices() []Voice {
	return []Voice{VoiceAsteria, VoiceLuna, VoiceStella, VoiceAthena, VoiceOrion, VoiceArcas}
}
