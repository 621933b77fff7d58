package docstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store 申请材料存储。路径以 <applicationID>/<kind><ext> 为键。
// 删除是 best-effort 语义：记录删除以持久层为准，文件清理失败由调用方记日志后继续。
type Store interface {
	Save(applicationID, kind, filename string, r io.Reader) (path string, err error)
	Remove(path string) error
	RemoveAll(applicationID string) error
}

// DiskStore 本地磁盘实现。
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("upload dir is empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// validComponent 路径键只允许单层文件名，kind 来自外部表单字段，必须挡住穿越
func validComponent(c string) bool {
	if c == "" || c == "." || c == ".." {
		return false
	}
	return !strings.ContainsAny(c, `/\`)
}

func (s *DiskStore) Save(applicationID, kind, filename string, r io.Reader) (string, error) {
	if !validComponent(applicationID) {
		return "", fmt.Errorf("invalid application id: %q", applicationID)
	}
	if !validComponent(kind) {
		return "", fmt.Errorf("invalid document kind: %q", kind)
	}
	dir := filepath.Join(s.root, applicationID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create application dir: %w", err)
	}

	ext := filepath.Ext(filename)
	rel := filepath.Join(applicationID, kind+ext)
	full := filepath.Join(s.root, rel)

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create document file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("write document file: %w", err)
	}
	return rel, nil
}

func (s *DiskStore) Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	// 只允许删根目录以内的文件
	full := filepath.Join(s.root, filepath.Clean(path))
	if !strings.HasPrefix(full, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return fmt.Errorf("path escapes upload dir: %s", path)
	}
	return os.Remove(full)
}

func (s *DiskStore) RemoveAll(applicationID string) error {
	if strings.TrimSpace(applicationID) == "" {
		return nil
	}
	if !validComponent(applicationID) {
		return fmt.Errorf("invalid application id: %q", applicationID)
	}
	return os.RemoveAll(filepath.Join(s.root, applicationID))
}
