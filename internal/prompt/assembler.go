package prompt

import (
	"fmt"
	"strings"

	"storebot/internal/catalog"
	"storebot/internal/conversation"
	"storebot/internal/enrich"
)

// HistoryWindow is how many recent entries are rendered into the prompt.
// Older turns are simply dropped, not summarized.
const HistoryWindow = 20

// historyLineLimit caps each rendered history line, in runes.
const historyLineLimit = 100

// Greeting is the canned first-contact reply; it is returned without a
// backend call.
const Greeting = "أهلاً وسهلاً! أنا البوت الذكي بتاع آفاق ستورز 👋\nإزيك؟ تحب أساعدك في إيه النهاردة؟"

// Markers stand in for non-text inputs; the raw media travels to the
// gateway separately.
const (
	MarkerImage = "بعت صورة"
	MarkerVoice = "بعت ريكورد صوتي"
)

// Assembler turns conversation state, enrichment and the new message into
// one bounded prompt. Build is deterministic: identical inputs produce an
// identical prompt.
type Assembler struct {
	catalog     *catalog.Catalog
	excerptSize int
}

func NewAssembler(c *catalog.Catalog, excerptSize int) *Assembler {
	return &Assembler{catalog: c, excerptSize: excerptSize}
}

func (a *Assembler) Build(history []conversation.Entry, fact enrich.Fact, userText string) string {
	var b strings.Builder
	b.WriteString("أنت البوت الذكي بتاع آفاق ستورز، بتتكلم عامية مصرية ودودة.\n")
	b.WriteString("لو سألك \"إنت مين؟\" قوله: أيوه أنا البوت الذكي بتاع آفاق ستورز.\n\n")

	fmt.Fprintf(&b, "العميل في %s والجو حوالي %s°C\n\n", fact.City, fact.Temp)

	b.WriteString("آخر كلام:\n")
	b.WriteString(renderHistory(history))
	b.WriteString("\n\n")

	b.WriteString("المنتجات المتاحة (اختر منهم بس):\n")
	b.WriteString(a.catalog.Excerpt(a.excerptSize))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "العميل بيقول: %s\n\n", userText)

	b.WriteString("لو صورة → قوله \"ثانية بس أشوف الصورة...\"\n")
	b.WriteString("لو طلب حاجة → رشحله من المنتجات بالشكل ده:\n")
	b.WriteString("تيشيرت قطن أبيض\nالسعر: 130 جنيه\nاللينك: https://afaq-stores.com/product-details/123\n\n")
	b.WriteString("رد دلوقتي بالعامية المصرية ومتستخدمش إيموجي كتير.")
	return b.String()
}

func renderHistory(history []conversation.Entry) string {
	lines := make([]string, 0, len(history))
	for _, e := range history {
		label := "البوت"
		if e.Role == conversation.RoleCustomer {
			label = "العميل"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, truncateRunes(e.Text, historyLineLimit)))
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
