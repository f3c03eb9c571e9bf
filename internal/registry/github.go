package registry

import (
	"encoding/json"
	"io"
)

// decodeGitHubTags decodes a GitHub "list releases" or "list tags" API
// response into a flat list of tag names (a release's tag_name, or a
// tag's name), which is the version source most declarative manifests
// point VersionsURL at.
func decodeGitHubTags(r io.Reader) ([]string, error) {
	var releases []struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(r).Decode(&releases); err != nil {
		return nil, err
	}
	tags := make([]string, len(releases))
	for i, rel := range releases {
		tags[i] = rel.TagName
		if tags[i] == "" {
			tags[i] = rel.Name
		}
	}
	return tags, nil
}
