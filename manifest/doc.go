// Package manifest checks Kubernetes manifests produced by substitution. It
// decodes multi-document YAML streams separated by "---" markers and verifies
// that every object carrying a kind has a metadata.name that is a valid
// DNS-1123 subdomain, and that its namespace and labels follow the Kubernetes
// naming rules. A variable that expands to nothing, or a placeholder variant
// that leaves a stray separator, usually surfaces here as an invalid name.
package manifest
