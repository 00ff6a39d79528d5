package main

import (
	"context"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/gamify"
)

// seed loads the badge catalog so badge listings are complete before any
// badge has been earned. Awards create missing catalog rows on the fly, so
// re-running is safe: existing badges are left alone.
func (cli *commandLine) seed() error {
	ctx := context.Background()
	rules := gamify.DefaultRules()

	for key, rule := range rules.Badges {
		if _, err := cli.gameRepo.GetBadgeByKey(ctx, key); err == nil {
			continue
		} else if err != gamify.ErrBadgeNotFound {
			return err
		}

		badge := gamify.Badge{
			Key:         key,
			Name:        rule.Name,
			Description: rule.Description,
			CreatedAt:   core.NowFunc().UTC(),
		}
		if _, err := cli.gameRepo.CreateBadge(ctx, badge); err != nil {
			return err
		}
		logger.Printf("seeded badge %q", key)
	}
	return nil
}
