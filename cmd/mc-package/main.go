package main

import (
	"archive/zip"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// skipDirs are directories never included in a deployment bundle.
var skipDirs = map[string]struct{}{
	".git":         {},
	".idea":        {},
	".vscode":      {},
	"node_modules": {},
}

// skipSuffixes are file endings never included in a deployment bundle.
var skipSuffixes = []string{
	".zip",
	".log",
	".swp",
	"~",
}

func main() {
	if err := run(); err != nil {
		fmt.Printf("error packaging application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		srcDir  string
		outPath string
	)
	flag.StringVar(&srcDir, "src", ".", "directory to bundle")
	flag.StringVar(&outPath, "out", "", "output zip path (default mconnect-<date>.zip)")
	flag.Parse()

	if outPath == "" {
		outPath = fmt.Sprintf("mconnect-%s.zip", time.Now().Format("20060102-150405"))
	}

	absOut, err := filepath.Abs(outPath)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	count := 0
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if _, ok := skipDirs[d.Name()]; ok {
				return filepath.SkipDir
			}
			return nil
		}

		if skipFile(d.Name()) {
			return nil
		}

		// never bundle the archive being written
		if abs, err := filepath.Abs(path); err == nil && abs == absOut {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		if err := addFile(zw, path, rel); err != nil {
			return fmt.Errorf("add %s: %w", rel, err)
		}

		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", srcDir, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}

	fmt.Printf("packaged %d files into %s\n", count, outPath)

	return nil
}

func skipFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return false
}

func addFile(zw *zip.Writer, path, rel string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(w, src)
	return err
}
