// catalog/catalog.go
package catalog

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/codebattle/models"
)

// Size 题库模板数量
func Size() int {
	return len(templates)
}

// Templates 返回题库的浅拷贝，供只读遍历
func Templates() []Template {
	result := make([]Template, len(templates))
	copy(result, templates)
	return result
}

// Factory 从题库随机签发一次性卡牌
type Factory struct {
	rng   *rand.Rand
	mutex sync.Mutex
}

// NewFactory 创建卡牌工厂。rng 为 nil 时使用时间种子
func NewFactory(rng *rand.Rand) *Factory {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Factory{rng: rng}
}

// Deal 签发一张新卡。卡牌持有模板的副本，互不串改
func (f *Factory) Deal() models.Card {
	f.mutex.Lock()
	t := templates[f.rng.Intn(len(templates))]
	f.mutex.Unlock()

	card := models.Card{
		ID:      uuid.NewString(),
		Problem: cloneProblem(t.Problem),
	}
	if t.Reward != nil {
		r := *t.Reward
		card.Reward = &r
	}
	if t.Challenge != nil {
		c := *t.Challenge
		card.Challenge = &c
	}
	return card
}

// DealHand 签发一手牌
func (f *Factory) DealHand(n int) []models.Card {
	cards := make([]models.Card, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, f.Deal())
	}
	return cards
}

func cloneProblem(p models.Problem) models.Problem {
	params := make([]string, len(p.Signature.Params))
	copy(params, p.Signature.Params)
	p.Signature.Params = params

	cases := make([]models.TestCase, len(p.TestCases))
	copy(cases, p.TestCases)
	p.TestCases = cases

	return p
}
