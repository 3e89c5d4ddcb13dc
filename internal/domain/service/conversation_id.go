package service

// GeneralChatID is the well-known id of the broadcast room every user lands in.
const GeneralChatID = "general_chat"

const directPrefix = "dm_"

// ConversationID derives the id of the direct conversation between a and b.
// The pair is sorted so both sides resolve to the same record.
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return directPrefix + a + "_" + b
}
