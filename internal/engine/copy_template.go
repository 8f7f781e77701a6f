package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

// openers seed the template copy variants.
var openers = []string{
	"Stop scrolling",
	"This is your sign",
	"Built for people who hate wasting time",
	"Small change, big result",
	"If you're serious about results",
}

// templateCopyEngine produces deterministic ad copy from the project brief.
// It is the chain terminator for copy jobs: no model files required.
type templateCopyEngine struct{}

func (e *templateCopyEngine) Descriptor() Descriptor {
	return Descriptor{Name: "template", Device: DeviceCPU, Tier: TierPlaceholder}
}

func (e *templateCopyEngine) Generate(_ context.Context, req CopyRequest) (*CopyOutput, error) {
	h := fnv.New64a()
	fmt.Fprint(h, req.Project.ID, req.Project.BrandName, req.Project.Product, req.Goal, req.CTA, req.Count, req.Mode)
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	variants := make([]model.CopyVariant, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		opener := openers[rng.Intn(len(openers))]
		urgency := "today"
		if i%2 == 1 {
			urgency = "this week"
		}

		headline := fmt.Sprintf("%s for %s", req.Project.Product, req.Project.Audience)
		if req.Mode == model.ModeHQ {
			headline = fmt.Sprintf("%s | %s %s", headline, req.Project.BrandName, req.Goal)
		}

		primary := fmt.Sprintf(
			"%s: %s helps %s unlock %s with a %s approach. Use %s and start %s.",
			opener, req.Project.BrandName, req.Project.Audience, req.Goal,
			req.Project.Tone, req.Project.Offer, urgency,
		)

		variants = append(variants, model.CopyVariant{
			Hook:        fmt.Sprintf("%s. %s.", opener, req.Goal),
			Headline:    headline,
			PrimaryText: primary,
			CTA:         req.CTA,
		})
	}

	return &CopyOutput{
		Variants: variants,
		Meta: map[string]string{
			"engine": "template",
			"mode":   req.Mode,
			"count":  strconv.Itoa(len(variants)),
		},
	}, nil
}
