package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/storage"
	"github.com/urfave/cli/v2"
)

func newArchiveCommand() *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Inspect archived order workbooks and global stock uploads",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List archived objects under a folder (orders, global-stock)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Usage: "Archive folder", Value: "orders"},
				},
				Action: listArchive,
			},
			{
				Name:  "download",
				Usage: "Download archived objects into a local directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Usage: "Archive folder", Value: "orders"},
					&cli.StringFlag{Name: "key", Usage: "Single object key, relative to the folder"},
					&cli.StringFlag{Name: "dir", Usage: "Download directory", Value: "./data/tmp/archive"},
				},
				Action: downloadArchive,
			},
		},
	}
}

func openArchive() (*storage.Archive, error) {
	cfg := config.Load()
	backend, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("no storage driver configured (set STORAGE_DRIVER)")
	}
	return storage.NewArchive(backend, cfg.Storage.Prefix), nil
}

func listArchive(c *cli.Context) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	objects, err := archive.List(c.Context, c.String("folder"))
	if err != nil {
		return err
	}
	for _, obj := range objects {
		fmt.Printf("%s\t%d\n", obj.Key, obj.Size)
	}
	return nil
}

func downloadArchive(c *cli.Context) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	folder := strings.Trim(c.String("folder"), "/")
	destDir := c.String("dir")

	var keys []string
	if override := c.String("key"); override != "" {
		keys = []string{archive.Key(resolveObjectKey(folder, override))}
	} else {
		objects, err := archive.List(c.Context, folder)
		if err != nil {
			return fmt.Errorf("failed to list archive folder %s: %w", folder, err)
		}
		for _, obj := range objects {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("no archived objects found in %s", folder)
	}

	for _, key := range keys {
		data, err := archive.Get(c.Context, key)
		if err != nil {
			return err
		}
		localPath := filepath.Join(destDir, objectRelativePath(folder, key))
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return fmt.Errorf("failed to prepare directory for %s: %w", localPath, err)
		}
		if err := os.WriteFile(localPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", localPath, err)
		}
		log.Printf("Downloaded %s -> %s", key, localPath)
	}
	return nil
}

func resolveObjectKey(prefix, override string) string {
	if override == "" {
		return strings.TrimSpace(prefix)
	}
	if prefix == "" {
		return strings.TrimPrefix(override, "/")
	}

	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	overrideTrimmed := strings.TrimPrefix(strings.TrimSpace(override), "/")

	if strings.HasPrefix(overrideTrimmed, prefixTrimmed) {
		return overrideTrimmed
	}
	return fmt.Sprintf("%s/%s", prefixTrimmed, overrideTrimmed)
}

// objectRelativePath strips everything up to and including the folder.
func objectRelativePath(folder, key string) string {
	if folder == "" {
		return key
	}
	folderTrimmed := strings.Trim(strings.TrimSpace(folder), "/")
	if i := strings.Index(key, folderTrimmed+"/"); i >= 0 {
		if rel := key[i+len(folderTrimmed)+1:]; rel != "" {
			return rel
		}
	}
	return filepath.Base(key)
}
