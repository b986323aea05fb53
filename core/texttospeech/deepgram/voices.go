package deepgram

type deepgramVoice string

const defaultVoice = VoiceAura2ThaliaEn

const (
	VoiceAura2ThaliaEn    deepgramVoice = "aura-2-thalia-en"
	VoiceAura2AndromedaEn deepgramVoice = "aura-2-andromeda-en"
	VoiceAura2HeliosEn    deepgramVoice = "aura-2-helios-en"
	VoiceAura2ApolloEn    deepgramVoice = "aura-2-apollo-en"
	VoiceAura2ArcasEn     deepgramVoice = "aura-2-arcas-en"
	VoiceAura2AthenaEn    deepgramVoice = "aura-2-athena-en"
	VoiceAura2OrionEn     deepgramVoice = "aura-2-orion-en"
	VoiceAura2ZeusEn      deepgramVoice = "aura-2-zeus-en"
	VoiceAuraAsteriaEn    deepgramVoice = "aura-asteria-en"
	VoiceAuraLunaEn       deepgramVoice = "aura-luna-en"
	VoiceAuraOrionEn      deepgramVoice = "aura-orion-en"
	VoiceAuraPerseusEn    deepgramVoice = "aura-perseus-en"
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceAura2ThaliaEn,
		VoiceAura2AndromedaEn,
		VoiceAura2HeliosEn,
		VoiceAura2ApolloEn,
		VoiceAura2ArcasEn,
		VoiceAura2AthenaEn,
		VoiceAura2OrionEn,
		VoiceAura2ZeusEn,
		VoiceAuraAsteriaEn,
		VoiceAuraLunaEn,
		VoiceAuraOrionEn,
		VoiceAuraPerseusEn,
	}
}

// ParseVoice accepts a voice name from configuration. An empty name
// selects the default voice.
func ParseVoice(name string) (deepgramVoice, bool) {
	if name == "" {
		return defaultVoice, true
	}
	for _, voice := range GetAvailableVoices() {
		if string(voice) == name {
			return voice, true
		}
	}
	return "", false
}
