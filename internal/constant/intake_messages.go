package constant

// Replies sent to the user by the intake flow.
const (
	IntakeMsgStart            = "👋 Hi! Send me two PDF files with your lab results, one file per message."
	IntakeMsgNotADocument     = "⚠️ Please send a PDF file."
	IntakeMsgFirstReceived    = "✅ File received. Waiting for one more PDF."
	IntakeMsgComparing        = "🔍 Comparing your results..."
	IntakeMsgResultPrefix     = "📊 Here is the comparison of your results:\n\n"
	IntakeMsgNotStarted       = "Send /start to begin a new comparison."
	IntakeMsgCancelled        = "Comparison cancelled. Send /start to begin again."
	IntakeMsgExtractionFailed = "❌ I could not read one of the files. Make sure both are valid PDF documents and send /start to try again."
	IntakeMsgComparisonFailed = "❌ The comparison service is unavailable right now. Send /start to try again."
	IntakeMsgDocumentRejected = "❌ I could not accept this file. Make sure it is a PDF under the size limit."
	IntakeMsgInternalError    = "❌ Something went wrong. Send /start to try again."
)
