package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// cpLocation is one side of a cp argument: either a local filesystem
// path or an s3://bucket/key reference.
type cpLocation struct {
	s3     bool
	bucket string
	key    string
	path   string
}

func parseCPLocation(s string) cpLocation {
	if !strings.HasPrefix(s, "s3://") {
		return cpLocation{path: s}
	}
	rest := strings.TrimPrefix(s, "s3://")
	bucket, key, _ := strings.Cut(rest, "/")
	return cpLocation{s3: true, bucket: bucket, key: key}
}

func (l cpLocation) String() string {
	if l.s3 {
		return "s3://" + l.bucket + "/" + l.key
	}
	return l.path
}

// cpCmd implements the cp <src> <dst> surface, where either side may
// be local or s3://bucket/key: s3-to-s3 goes through Engine.CopyObject,
// the two mixed directions go through PutObject/GetObject the same
// way put and get do, and local-to-local is a plain file copy.
func cpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "Copy an object; either side may be local or s3://bucket/key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := parseCPLocation(args[0])
			dst := parseCPLocation(args[1])

			switch {
			case src.s3 && dst.s3:
				out, err := DG.Engine.CopyObject(ctx(), src.bucket, src.key, dst.bucket, dst.key)
				if err != nil {
					return err
				}
				fmt.Printf("copied %s -> %s (etag %s)\n", src, dst, out.ETag)

			case src.s3 && !dst.s3:
				body, _, err := DG.Engine.GetObject(ctx(), src.bucket, src.key)
				if err != nil {
					return err
				}
				defer body.Close()

				f, err := os.Create(dst.path)
				if err != nil {
					return err
				}
				defer f.Close()

				n, err := io.Copy(f, body)
				if err != nil {
					return err
				}
				fmt.Printf("copied %s -> %s (%d bytes)\n", src, dst, n)

			case !src.s3 && dst.s3:
				f, err := os.Open(src.path)
				if err != nil {
					return err
				}
				defer f.Close()

				info, err := f.Stat()
				if err != nil {
					return err
				}

				out, err := DG.Engine.PutObject(ctx(), dst.bucket, dst.key, f, info.Size())
				if err != nil {
					return err
				}
				fmt.Printf("copied %s -> %s (etag %s)\n", src, dst, out.ETag)

			default:
				in, err := os.Open(src.path)
				if err != nil {
					return err
				}
				defer in.Close()

				out, err := os.Create(dst.path)
				if err != nil {
					return err
				}
				defer out.Close()

				n, err := io.Copy(out, in)
				if err != nil {
					return err
				}
				fmt.Printf("copied %s -> %s (%d bytes)\n", src, dst, n)
			}
			return nil
		},
	}
}
