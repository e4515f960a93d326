// Package settings holds the in-memory mirror of the persisted feature
// flags and annotation list, backed by a pluggable key-value store.
package settings

// Storage keys shared with the other extension surfaces.
const (
	KeyUserRemarks       = "userRemarks"
	KeyRemarkEnabled     = "remarkFeatureEnabled"
	KeyVideoDownload     = "videoDownloadFeatureEnabled"
	KeyScreenshotEnabled = "screenshotFeatureEnabled"
	KeyDownloadDirectory = "downloadDirectory"
)

// AllKeys lists every key the cache loads in its one-shot read.
var AllKeys = []string{
	KeyUserRemarks,
	KeyRemarkEnabled,
	KeyVideoDownload,
	KeyScreenshotEnabled,
	KeyDownloadDirectory,
}

// Annotation is user-authored text that visually replaces a username
// wherever it is referenced on the page. Username is the unique key,
// case-sensitive, stored without the "@" marker.
type Annotation struct {
	Username string `json:"username"`
	Remark   string `json:"remark"`
}

// Values is one consistent snapshot of every setting the page session
// reads. Feature flags default to enabled when unset.
type Values struct {
	Remarks           []Annotation
	RemarkEnabled     bool
	VideoDownload     bool
	ScreenshotEnabled bool
	DownloadDirectory string
}

// Defaults returns the values substituted for unset keys.
func Defaults() Values {
	return Values{
		Remarks:           []Annotation{},
		RemarkEnabled:     true,
		VideoDownload:     true,
		ScreenshotEnabled: true,
	}
}

// Remark returns the remark stored for username and whether one exists.
func (v Values) Remark(username string) (string, bool) {
	for _, a := range v.Remarks {
		if a.Username == username {
			return a.Remark, true
		}
	}
	return "", false
}

// clone returns a deep copy so callers can hold snapshots without
// aliasing the cache's slice.
func (v Values) clone() Values {
	out := v
	out.Remarks = make([]Annotation, len(v.Remarks))
	copy(out.Remarks, v.Remarks)
	return out
}

// upsertRemark updates the annotation for username in place, or
// appends it, preserving insertion order. Reports whether the list
// grew.
func upsertRemark(list []Annotation, username, remark string) ([]Annotation, bool) {
	for i := range list {
		if list[i].Username == username {
			list[i].Remark = remark
			return list, false
		}
	}
	return append(list, Annotation{Username: username, Remark: remark}), true
}

// removeRemark deletes the annotation for username if present.
func removeRemark(list []Annotation, username string) ([]Annotation, bool) {
	for i := range list {
		if list[i].Username == username {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}
