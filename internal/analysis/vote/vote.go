package vote

import (
	"sort"

	"github.com/zhouzirui/agora/backend/internal/model/debate"
)

// Vote 是裁判对某个 persona 的二元判定。
type Vote string

const (
	Aye Vote = "aye"
	Nay Vote = "nay"
)

// Basis 表示当前辩论采用的计票方式。
type Basis string

const (
	BasisThreshold Basis = "threshold"
	BasisPairwise  Basis = "pairwise"
)

const (
	// DefaultThreshold 是未配置时的及格分数线。
	DefaultThreshold = 7.0
	// DivisionJudge 用于缺少裁判身份的 pairwise 结果。
	DivisionJudge = "division"
)

// JudgeVoteFlow 是单条裁判判定，按事件顺序生成。
type JudgeVoteFlow struct {
	Persona string           `json:"persona"`
	Judge   string           `json:"judge"`
	Score   float64          `json:"score"`
	At      debate.Timestamp `json:"at"`
	Vote    Vote             `json:"vote"`
}

// Stats 汇总赞成/反对票数。
type Stats struct {
	Aye       int     `json:"aye"`
	Nay       int     `json:"nay"`
	Threshold float64 `json:"threshold"`
}

// Standing 是单个 persona 的得票情况。
type Standing struct {
	Persona string `json:"persona"`
	Aye     int    `json:"aye"`
	Nay     int    `json:"nay"`
}

// Result 是一次计票的完整输出。
type Result struct {
	EventScores    []debate.Score    `json:"eventScores"`
	PairwiseEvents []debate.Pairwise `json:"pairwiseEvents"`
	JudgeVotes     []JudgeVoteFlow   `json:"judgeVotes"`
	Basis          Basis             `json:"voteBasis"`
	Stats          Stats             `json:"voteStats"`
	Standings      []Standing        `json:"standings"`
}

// Tally derives votes from the event log. Any pairwise event switches the whole
// debate to pairwise counting and score events are then ignored. Events missing
// required fields and non-verdict events do not take part.
func Tally(events []debate.Event, threshold float64) Result {
	scores := make([]debate.Score, 0)
	pairwise := make([]debate.Pairwise, 0)

	for _, event := range events {
		switch e := event.(type) {
		case debate.Score:
			if e.Valid() {
				scores = append(scores, e)
			}
		case debate.Pairwise:
			if e.Valid() {
				pairwise = append(pairwise, e)
			}
		default:
		}
	}

	result := Result{
		EventScores:    scores,
		PairwiseEvents: pairwise,
		Basis:          BasisThreshold,
		Stats:          Stats{Threshold: threshold},
	}

	if len(pairwise) > 0 {
		result.Basis = BasisPairwise
		result.JudgeVotes = make([]JudgeVoteFlow, 0, len(pairwise))
		for _, p := range pairwise {
			judge := p.Judge
			if judge == "" {
				judge = DivisionJudge
			}
			result.JudgeVotes = append(result.JudgeVotes, JudgeVoteFlow{
				Persona: p.Winner,
				Judge:   judge,
				Score:   1,
				At:      p.At,
				Vote:    Aye,
			})
		}
	} else {
		result.JudgeVotes = make([]JudgeVoteFlow, 0, len(scores))
		for _, s := range scores {
			vote := Nay
			if *s.Score >= threshold {
				vote = Aye
			}
			result.JudgeVotes = append(result.JudgeVotes, JudgeVoteFlow{
				Persona: s.Persona,
				Judge:   s.Judge,
				Score:   *s.Score,
				At:      s.At,
				Vote:    vote,
			})
		}
	}

	for _, v := range result.JudgeVotes {
		if v.Vote == Aye {
			result.Stats.Aye++
		} else {
			result.Stats.Nay++
		}
	}
	result.Standings = standings(result.JudgeVotes)

	return result
}

func standings(votes []JudgeVoteFlow) []Standing {
	index := make(map[string]int)
	out := make([]Standing, 0)
	for _, v := range votes {
		i, ok := index[v.Persona]
		if !ok {
			i = len(out)
			index[v.Persona] = i
			out = append(out, Standing{Persona: v.Persona})
		}
		if v.Vote == Aye {
			out[i].Aye++
		} else {
			out[i].Nay++
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Aye != out[b].Aye {
			return out[a].Aye > out[b].Aye
		}
		return out[a].Persona < out[b].Persona
	})
	return out
}

// Aggregator 绑定环境级默认分数线，单次调用可覆盖。
type Aggregator struct {
	Threshold float64
}

// NewAggregator 返回使用给定默认分数线的聚合器；0 与负数同样有效。
func NewAggregator(threshold float64) Aggregator {
	return Aggregator{Threshold: threshold}
}

// Tally 计票；override 为 nil 时使用默认分数线。
func (a Aggregator) Tally(events []debate.Event, override *float64) Result {
	threshold := a.Threshold
	if override != nil {
		threshold = *override
	}
	return Tally(events, threshold)
}
