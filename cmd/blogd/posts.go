package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"blogd/internal/api"
	"blogd/internal/config"
	"blogd/internal/models"
)

type postCmdOptions struct {
	title       string
	author      string
	content     string
	contentFile string
	filePath    string
	imagePath   string
}

func bindPostFlags(cmd *cobra.Command, opts *postCmdOptions) {
	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "post title")
	cmd.Flags().StringVarP(&opts.author, "author", "a", "", "post author")
	cmd.Flags().StringVarP(&opts.content, "content", "c", "", "post content (HTML allowed)")
	cmd.Flags().StringVar(&opts.contentFile, "content-file", "", "read post content from a file")
	cmd.Flags().StringVarP(&opts.filePath, "file", "f", "", "markdown file with a YAML header (title, author, image)")
	cmd.Flags().StringVarP(&opts.imagePath, "image", "i", "", "image file to attach")
}

func newPostsCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "posts",
		Aliases: []string{"post"},
		Short:   "List, show, create, edit and delete posts",
	}
	cmd.AddCommand(
		newPostsListCmd(cfg, out),
		newPostsShowCmd(cfg, out),
		newPostsCreateCmd(cfg, out),
		newPostsEditCmd(cfg, out),
		newPostsDeleteCmd(cfg, out),
	)
	return cmd
}

func newPostsListCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				posts, err := client.ListPosts(cmd.Context())
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(posts)
				}
				return writePostList(posts)
			})
		},
	}
}

func newPostsShowCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one post",
		Args:  requirePostID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				post, err := client.GetPost(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(post)
				}
				return writePostDetail(post)
			})
		},
	}
}

func newPostsCreateCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	opts := &postCmdOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := buildPostInput(cmd, opts, api.PostInput{})
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				post, err := client.CreatePost(cmd.Context(), in)
				if err != nil {
					return err
				}
				return writeSavedPost(out, post)
			})
		},
	}
	bindPostFlags(cmd, opts)
	return cmd
}

func newPostsEditCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	opts := &postCmdOptions{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a post; unset fields keep their current value",
		Args:  requirePostID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				post, err := editPost(cmd, client, opts, args[0])
				if err != nil {
					return err
				}
				return writeSavedPost(out, post)
			})
		},
	}
	bindPostFlags(cmd, opts)
	return cmd
}

func newPostsDeleteCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post",
		Args:  requirePostID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.DeletePost(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(resp)
				}
				return writePlain("%s\n", resp.Message)
			})
		},
	}
}

func editPost(cmd *cobra.Command, client *api.Client, opts *postCmdOptions, id string) (models.Post, error) {
	current, err := client.GetPost(cmd.Context(), id)
	if err != nil {
		return models.Post{}, err
	}
	base := api.PostInput{Title: current.Title, Author: current.Author, Content: current.Content}
	in, err := buildPostInput(cmd, opts, base)
	if err != nil {
		return models.Post{}, err
	}
	return client.UpdatePost(cmd.Context(), id, in)
}

// buildPostInput layers the file, then explicit flags, over base.
func buildPostInput(cmd *cobra.Command, opts *postCmdOptions, base api.PostInput) (api.PostInput, error) {
	in := base
	if opts.filePath != "" {
		fromFile, err := postInputFromFile(opts.filePath)
		if err != nil {
			return api.PostInput{}, err
		}
		in = mergePostInput(in, fromFile)
	}

	flags := cmd.Flags()
	if flags.Changed("title") {
		in.Title = opts.title
	}
	if flags.Changed("author") {
		in.Author = opts.author
	}
	if flags.Changed("content") && flags.Changed("content-file") {
		return api.PostInput{}, errors.New("--content and --content-file are mutually exclusive")
	}
	if flags.Changed("content") {
		in.Content = opts.content
	}
	if opts.contentFile != "" {
		data, err := os.ReadFile(opts.contentFile)
		if err != nil {
			return api.PostInput{}, err
		}
		in.Content = string(data)
	}
	if opts.imagePath != "" {
		if err := attachImage(&in, opts.imagePath); err != nil {
			return api.PostInput{}, err
		}
	}
	return in, nil
}

func mergePostInput(base, override api.PostInput) api.PostInput {
	if override.Title != "" {
		base.Title = override.Title
	}
	if override.Author != "" {
		base.Author = override.Author
	}
	if override.Content != "" {
		base.Content = override.Content
	}
	if override.Image != nil {
		base.Image = override.Image
		base.ImageName = override.ImageName
	}
	return base
}

func writeSavedPost(out *outputOptions, post models.Post) error {
	if out.structured() {
		return writeStructured(post)
	}
	return writePlain("%s\n", post.ID)
}
