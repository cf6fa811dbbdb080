package whisper

// Config holds the fixed per-run settings for the faster-whisper CLI.
type Config struct {
	// Binary is the faster-whisper CLI executable. Defaults to "faster-whisper".
	Binary      string
	Model       string
	Device      string
	ComputeType string
	Language    string
	// InitialPrompt biases decoding toward the configured vocabulary.
	InitialPrompt string
}

// PassOptions are the decoding knobs that vary between transcription passes.
// Zero values mean "omit the flag" for floats and ints where the CLI default
// is acceptable.
type PassOptions struct {
	BeamSize                  int
	BestOf                    int
	Patience                  float64
	LengthPenalty             float64
	RepetitionPenalty         float64
	NoRepeatNgramSize         int
	Temperatures              []float64
	CompressionRatioThreshold float64
	LogProbThreshold          float64
	NoSpeechThreshold         float64

	// VAD filter parameters forwarded to the CLI's built-in silero filter.
	VADThreshold     float64
	MinSpeechMs      int
	MinSilenceMs     int
	SpeechPadMs      int
	WordTimestamps   bool
	ConditionOnPrior bool
}

const (
	// DefaultModel matches the quality target used for gaming clips.
	DefaultModel = "large-v3"

	defaultBinary      = "faster-whisper"
	defaultDevice      = "cuda"
	defaultComputeType = "float16"
)

// KeywordPrompt lists Argentine gaming vocabulary and common player
// nicknames. Keyword-only prompts avoid the model echoing prompt sentences
// into the transcript.
const KeywordPrompt = "adriel, gabriel, estani, wilo, corcho, ruben, erizo, " +
	"che, boludo, pibe, mina, posta, dale, zafar, guita, " +
	"gg, clutch, lag, gank, headshot, rekt"

// ConversationalPrompt is a long-form instruction prompt. It yields better
// jargon handling on clean audio but can leak literal prompt fragments into
// the transcript on noisy input.
const ConversationalPrompt = "Esto es una conversación en español argentino sobre videojuegos. " +
	"Expresiones típicas: \"dale\", \"bueno\", \"che\", \"boludo\", \"posta\", \"zafar\". " +
	"Términos de juego: clutch, lag, gank, headshot. " +
	"Mantené la ortografía coloquial pero entendible y no inventes palabras."
