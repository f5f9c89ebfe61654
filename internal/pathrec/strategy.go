package pathrec

import (
	"strings"
)

// Strategy rewrites one analyzer-specific path convention into the
// convention of the violation report.
type Strategy interface {
	Name() string
	Applies(p string) bool
	// Rewrite returns the rewritten path and whether the rewrite was only partial.
	Rewrite(p string) (rewritten string, unresolved bool)
}

// BytecodeOptions tunes BytecodeStrategy.
type BytecodeOptions struct {
	SourceRoot      string   // prefix of the reconstructed source path
	PackageRoots    []string // top-level package segments
	TempMarker      string
	DecompileMarker string
	BytecodeExt     string
	SourceExt       string
}

// DefaultBytecodeOptions matches the jimple2cpg frontend decompiling into /tmp.
func DefaultBytecodeOptions() BytecodeOptions {
	return BytecodeOptions{
		SourceRoot:      "/sources/src/main/java/",
		PackageRoots:    []string{"org/", "com/", "net/", "io/"},
		TempMarker:      "/tmp/",
		DecompileMarker: "jimple2cpg",
		BytecodeExt:     ".class",
		SourceExt:       ".java",
	}
}

// BytecodeStrategy maps paths of classes decompiled by the graph exporter
// back to their Maven source location.
type BytecodeStrategy struct {
	opts BytecodeOptions
}

// NewBytecodeStrategy builds a BytecodeStrategy; zero-valued options fall back to the defaults.
func NewBytecodeStrategy(opts BytecodeOptions) *BytecodeStrategy {
	def := DefaultBytecodeOptions()
	if opts.SourceRoot == "" {
		opts.SourceRoot = def.SourceRoot
	}
	if !strings.HasSuffix(opts.SourceRoot, "/") {
		opts.SourceRoot += "/"
	}
	if len(opts.PackageRoots) == 0 {
		opts.PackageRoots = def.PackageRoots
	}
	roots := make([]string, 0, len(opts.PackageRoots))
	for _, root := range opts.PackageRoots {
		root = strings.Trim(root, "/")
		if root != "" {
			roots = append(roots, root+"/")
		}
	}
	opts.PackageRoots = roots
	if opts.TempMarker == "" {
		opts.TempMarker = def.TempMarker
	}
	if opts.DecompileMarker == "" {
		opts.DecompileMarker = def.DecompileMarker
	}
	if opts.BytecodeExt == "" {
		opts.BytecodeExt = def.BytecodeExt
	}
	if opts.SourceExt == "" {
		opts.SourceExt = def.SourceExt
	}
	return &BytecodeStrategy{opts: opts}
}

func (s *BytecodeStrategy) Name() string { return "bytecode" }

// Applies reports whether p refers to a bytecode file at all.
func (s *BytecodeStrategy) Applies(p string) bool {
	return strings.Contains(p, s.opts.BytecodeExt)
}

// Rewrite relocates decompiled paths under the source root and swaps the
// bytecode extension for the source one. Paths without the decompile
// markers only get the extension swap.
func (s *BytecodeStrategy) Rewrite(p string) (string, bool) {
	unresolved := false
	if strings.Contains(p, s.opts.TempMarker) && strings.Contains(p, s.opts.DecompileMarker) {
		if idx := s.packageStart(p); idx >= 0 {
			p = s.opts.SourceRoot + p[idx:]
		} else {
			unresolved = true
		}
	}
	return strings.ReplaceAll(p, s.opts.BytecodeExt, s.opts.SourceExt), unresolved
}

// packageStart finds where the package hierarchy begins: the earliest
// segment boundary (index 0 or right after a '/') at which a package root
// starts. "org/" inside "sourceforge/" is not a boundary and is ignored.
func (s *BytecodeStrategy) packageStart(p string) int {
	for i := 0; i < len(p); i++ {
		if i > 0 && p[i-1] != '/' {
			continue
		}
		for _, root := range s.opts.PackageRoots {
			if strings.HasPrefix(p[i:], root) {
				return i
			}
		}
	}
	return -1
}
