package export

import (
	"github.com/iksnae/wa-history/internal"
)

func sampleConversation() *internal.Conversation {
	conv := internal.CreateTestConversation("15551234567", "Ravi Kumar",
		internal.CreateTestMessage("m1", "Hi, is the **order** ready?", 1700000000000),
	)
	conv.Messages = append(conv.Messages, internal.StoredMessage{
		ID:        "m2",
		Text:      internal.StringPtr("Yes, shipping today"),
		Timestamp: 1700000060000,
		Status:    internal.StatusRead,
		FromMe:    true,
	})
	conv.Normalize()
	return conv
}
