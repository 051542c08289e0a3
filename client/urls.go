package client

import (
	"fmt"
	"strings"
)

// PackageURL returns the npm web page for a package, or a specific version.
func PackageURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("https://www.npmjs.com/package/%s/v/%s", name, version)
	}
	return fmt.Sprintf("https://www.npmjs.com/package/%s", name)
}

// TarballURL returns the registry tarball URL for a published version.
func TarballURL(baseURL, name, version string) string {
	shortName := name
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		shortName = name[idx+1:]
	}
	return fmt.Sprintf("%s/%s/-/%s-%s.tgz", strings.TrimSuffix(baseURL, "/"), name, shortName, version)
}

// PURL returns the package URL identifier for a package, with scoped names
// split into namespace and name components.
func PURL(name, version string) string {
	namespace := ""
	pkgName := name
	if strings.HasPrefix(name, "@") && strings.Contains(name, "/") {
		parts := strings.SplitN(name, "/", 2)
		namespace = parts[0]
		pkgName = parts[1]
	}

	purl := "pkg:npm/" + pkgName
	if namespace != "" {
		purl = "pkg:npm/" + namespace + "/" + pkgName
	}
	if version != "" {
		purl += "@" + version
	}
	return purl
}
