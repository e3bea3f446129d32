// Package vfs implements the in-memory hierarchical file system that
// backs every shell session: path resolution, directories, files, and
// the size model described by the shell's data model.
package vfs

import "strings"

// Normalize resolves path against cwd (both absolute or path relative) into
// an absolute, normalized, "/"-separated path. Empty path resolves to cwd.
func Normalize(cwd, path string) string {
	if path == "" {
		path = cwd
	}
	path = strings.TrimPrefix(path, "./")

	var base string
	if strings.HasPrefix(path, "/") {
		base = path
	} else {
		base = cwd + "/" + path
	}

	segments := strings.Split(base, "/")
	stack := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	if len(stack) == 0 {
		return "/"
	}
	return "/" + strings.Join(stack, "/")
}

// Split breaks an already-normalized absolute path into its parent directory
// and the final segment. Split("/") returns ("/", "").
func Split(path string) (dir, name string) {
	if path == "/" {
		return "/", ""
	}
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/", path[idx+1:]
	}
	return path[:idx], path[idx+1:]
}
