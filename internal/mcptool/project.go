package mcp

import "path/filepath"

// VaultInfo describes the vault an Engine is serving, reported by the
// index_status tool.
type VaultInfo struct {
	Name     string `json:"name"`
	RootPath string `json:"root_path"`
}

// detectVault derives vault metadata from its source root. Unlike a
// code repository there's no manifest to read: the vault's name is
// just its directory name.
func detectVault(rootPath string) VaultInfo {
	return VaultInfo{
		Name:     filepath.Base(rootPath),
		RootPath: rootPath,
	}
}
