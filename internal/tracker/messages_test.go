package tracker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

const telegramLimit = 4096

func TestNotices_LongLabelFitsTelegramLimit(t *testing.T) {
	it := Item{
		Key:       Key{Recipient: -100, SourceID: "q1"},
		Label:     strings.Repeat("Ristrutturazione bagno & cucina ", 300),
		Reference: "https://drive.google.com/drive/folders/q1?usp=sharing",
	}

	for name, text := range map[string]string{
		"initial":  initialNotice(it),
		"reminder": reminderNotice(it),
		"expired":  expiredNotice(it),
		"operator": expiredOperatorNotice(it),
	} {
		t.Run(name, func(t *testing.T) {
			assert.LessOrEqual(t, utf8.RuneCountInString(text), telegramLimit)
			assert.Contains(t, text, "…")
			assert.Contains(t, text, "&amp;")
		})
	}
}

func TestNotices_ManyConfirmedItems(t *testing.T) {
	items := make([]Item, 40)
	for i := range items {
		items[i] = Item{
			Key:   Key{Recipient: -100, SourceID: fmt.Sprintf("q%d", i)},
			Label: strings.Repeat("x", 500),
		}
	}

	ack := ackNotice(items)
	assert.LessOrEqual(t, utf8.RuneCountInString(ack), telegramLimit)
	assert.True(t, strings.HasSuffix(ack, " e altri 25"))

	op := confirmedOperatorNotice(-100, items)
	assert.LessOrEqual(t, utf8.RuneCountInString(op), telegramLimit)
}

func TestNotices_ShortLabelUnchanged(t *testing.T) {
	it := Item{Label: "Cucina <Rossi>"}
	assert.Equal(t, "Cucina &lt;Rossi&gt;", label(it))
	assert.Equal(t, "✅ Conferma ricevuta per: Cucina &lt;Rossi&gt;", ackNotice([]Item{it}))
}
