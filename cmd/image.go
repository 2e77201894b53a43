package cmd

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/KaramelBytes/exodash/internal/ai"
	"github.com/KaramelBytes/exodash/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	imageSize   string
	imageOutput string
)

var imageCmd = &cobra.Command{
	Use:   "image <name>",
	Short: "Render an artist's impression of a planet",
	Args:  cobra.ExactArgs(1),
	Example: `  exodash image "TOI-700 d"
  exodash image "TOI-700 d" --size 2K -o toi-700d.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		size := cfg.ImageSize
		if cmd.Flags().Changed("size") {
			if !ai.ValidImageSize(imageSize) {
				return fmt.Errorf("invalid --size: %s (use one of %v)", imageSize, ai.ImageSizes)
			}
			size = imageSize
		}
		ctx := cmd.Context()
		r, err := findPlanet(ctx, args[0])
		if err != nil {
			return err
		}
		svc, closeSvc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer closeSvc()

		img, err := svc.Image(ctx, r, size)
		if err != nil {
			return err
		}
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
		path := imageOutput
		if path == "" {
			path = slug(r.Name) + extFor(img.MIMEType)
		}
		if err := utils.SafeWriteFile(path, data); err != nil {
			return err
		}
		success(cmd.ErrOrStderr(), "Wrote %s (%s, %s)", path, img.Size, humanize.Bytes(uint64(len(data))))
		if debug && img.Description != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Prompt: %s\n", img.Description)
		}
		return nil
	},
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a planet name into a file stem: "TOI-700 d" -> "toi-700-d".
func slug(name string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "planet"
	}
	return s
}

func extFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.Flags().StringVar(&imageSize, "size", ai.DefaultImageSize, "image size: 1K|2K|4K (overrides image_size)")
	imageCmd.Flags().StringVarP(&imageOutput, "output", "o", "", "output file (default <planet>.png)")
}
