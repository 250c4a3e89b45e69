package horoscope

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
)

// Phrase tables for the procedural generator. The generator is the terminal
// fallback of the content chain, so these must never be empty.
var (
	themePhrases = []string{
		"день подходит для спокойной, сосредоточенной работы",
		"хороший момент, чтобы закрыть давно отложенные дела",
		"день благоприятен для новых начинаний и знакомств",
		"стоит снизить темп и разобраться с приоритетами",
		"удачный день для переговоров и совместных решений",
		"энергия дня поддерживает творческие задачи",
		"день располагает к обучению и работе с информацией",
		"хорошее время, чтобы навести порядок в планах",
	}
	workPhrases = []string{
		"сосредоточьтесь на одной ключевой задаче и доведите её до конца",
		"коллеги готовы помочь — не стесняйтесь просить поддержки",
		"избегайте спонтанных обещаний, трезво оценивайте сроки",
		"хороший день для планирования следующей недели",
		"рутинные задачи пойдут легче обычного",
		"возможно полезное предложение — рассмотрите его внимательно",
		"не беритесь за всё сразу, расставьте приоритеты",
		"подходящий момент обсудить с руководством ваши идеи",
	}
	relationshipPhrases = []string{
		"близким сейчас важно ваше внимание, а не советы",
		"откровенный разговор снимет накопившееся напряжение",
		"не додумывайте за других — просто спросите напрямую",
		"хороший вечер для встречи со старыми друзьями",
		"маленький знак внимания укрепит отношения",
		"дайте партнёру пространство, не настаивайте на своём",
		"новые знакомства сегодня могут оказаться полезными",
		"семейные вопросы лучше решать спокойно и без спешки",
	}
	financePhrases = []string{
		"отложите крупные покупки на несколько дней",
		"полезно пересмотреть регулярные расходы",
		"день подходит для планирования бюджета",
		"не давайте и не берите в долг под влиянием эмоций",
		"возможен небольшой, но приятный доход",
		"инвестиционные решения требуют второй проверки",
		"сравните цены перед покупкой — найдёте вариант лучше",
		"финансовая дисциплина сегодня окупится вдвойне",
	}
	energyPhrases = []string{
		"энергия высокая — используйте её на главное",
		"берегите силы, делайте паузы между задачами",
		"короткая прогулка заметно прояснит голову",
		"вечером лучше отдохнуть без экранов",
		"телу нужно движение — разомнитесь хотя бы десять минут",
		"пейте больше воды и не пропускайте обед",
		"сон сегодня важнее позднего сериала",
		"лёгкая физическая нагрузка поднимет настроение",
	}
	advicePhrases = []string{
		"запишите три главных дела и начните с самого простого",
		"скажите «нет» одному лишнему обязательству",
		"поблагодарите того, кто недавно вам помог",
		"выделите полчаса на дело, которое давно откладывали",
		"наведите порядок на рабочем месте — станет легче думать",
		"сделайте первый шаг сами, не ждите идеальных условий",
		"сократите сегодня время в соцсетях вдвое",
		"завершите день коротким планом на завтра",
	}
)

// proceduralSeed derives a stable 63-bit seed from the (sign, date) key.
func proceduralSeed(sign Sign, isoDate string) int64 {
	sum := sha256.Sum256([]byte(string(sign) + isoDate))
	v := binary.BigEndian.Uint64(sum[:8]) % (1<<63 - 1)
	return int64(v)
}

// GenerateProcedural builds a deterministic horoscope body for the given
// sign and ISO date. The same input always yields the same output: the seed
// is a digest of the key, and sections consume the generator in fixed order
// (theme, work, relationships, finances, energy, advice).
func GenerateProcedural(sign Sign, isoDate string) Body {
	rng := rand.New(rand.NewSource(proceduralSeed(sign, isoDate)))
	pick := func(list []string) string {
		return list[rng.Intn(len(list))]
	}
	return Body{
		Theme:         pick(themePhrases),
		Work:          pick(workPhrases),
		Relationships: pick(relationshipPhrases),
		Finances:      pick(financePhrases),
		Energy:        pick(energyPhrases),
		Advice:        pick(advicePhrases),
	}
}

// ProceduralResolver adapts GenerateProcedural to the Resolver interface.
// It cannot fail and serves as the terminal fallback of the content chain.
type ProceduralResolver struct{}

func NewProceduralResolver() *ProceduralResolver {
	return &ProceduralResolver{}
}

func (r *ProceduralResolver) Resolve(_ context.Context, sign Sign, isoDate string) Outcome {
	body := GenerateProcedural(sign, isoDate)
	return Resolved(ProvenanceProcedural, body.Render(sign, isoDate))
}
