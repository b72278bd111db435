package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"blogd/internal/api"
	"blogd/internal/config"
)

const (
	seedImageWidth  = 320
	seedImageHeight = 200
)

type seedOptions struct {
	users  int
	posts  int
	images bool
	seed   int64
}

type seedPlan struct {
	Users []api.RegisterRequest
	Posts []api.PostInput
}

type seedResult struct {
	Users []string `json:"users" yaml:"users"`
	Posts []string `json:"posts" yaml:"posts"`
}

func newSeedCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the blog with fake users and posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.users < 1 || opts.posts < 0 {
				return fmt.Errorf("--users must be at least 1 and --posts non-negative")
			}
			plan := buildSeedPlan(gofakeit.New(opts.seed), *opts)
			return withClient(cfg, func(client *api.Client) error {
				result, err := applySeedPlan(cmd.Context(), client, plan)
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(result)
				}
				return writePlain("seeded %d users and %d posts\n", len(result.Users), len(result.Posts))
			})
		},
	}

	cmd.Flags().IntVar(&opts.users, "users", 3, "number of accounts to register")
	cmd.Flags().IntVar(&opts.posts, "posts", 10, "number of posts to create")
	cmd.Flags().BoolVar(&opts.images, "images", false, "attach a generated PNG to every post")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}

// buildSeedPlan generates the accounts and posts up front so a seed value
// always yields the same data.
func buildSeedPlan(faker *gofakeit.Faker, opts seedOptions) seedPlan {
	plan := seedPlan{}
	for i := 0; i < opts.users; i++ {
		username := faker.Username()
		plan.Users = append(plan.Users, api.RegisterRequest{
			Username: username,
			Email:    fmt.Sprintf("%s.%d@%s", strings.ToLower(username), i, faker.DomainName()),
			Password: faker.Password(true, true, true, false, false, 16),
		})
	}
	for i := 0; i < opts.posts; i++ {
		author := plan.Users[i%len(plan.Users)].Username
		in := api.PostInput{
			Title:   strings.TrimSuffix(faker.Sentence(faker.Number(3, 7)), "."),
			Author:  author,
			Content: seedContent(faker),
		}
		if opts.images {
			in.Image = faker.ImagePng(seedImageWidth, seedImageHeight)
			in.ImageName = fmt.Sprintf("seed-%d.png", i)
		}
		plan.Posts = append(plan.Posts, in)
	}
	return plan
}

func seedContent(faker *gofakeit.Faker) string {
	paragraphs := faker.Number(1, 4)
	var b strings.Builder
	for i := 0; i < paragraphs; i++ {
		b.WriteString("<p>")
		b.WriteString(faker.Paragraph(1, faker.Number(2, 5), faker.Number(6, 14), " "))
		b.WriteString("</p>")
	}
	return b.String()
}

func applySeedPlan(ctx context.Context, client *api.Client, plan seedPlan) (seedResult, error) {
	result := seedResult{Users: []string{}, Posts: []string{}}
	for _, req := range plan.Users {
		user, err := client.Register(ctx, req)
		if err != nil {
			return result, fmt.Errorf("register %s: %w", req.Email, err)
		}
		result.Users = append(result.Users, user.ID)
	}
	for _, in := range plan.Posts {
		post, err := client.CreatePost(ctx, in)
		if err != nil {
			return result, fmt.Errorf("create post %q: %w", in.Title, err)
		}
		result.Posts = append(result.Posts, post.ID)
	}
	return result, nil
}
