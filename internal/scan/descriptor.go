// Package scan walks the brand/project tree and fingerprints each project folder.
package scan

// Brand folders recognized directly under the scan root.
const (
	BrandTech    = "tech"
	BrandRecords = "records"
)

// Brands lists the recognized brand folders in scan order.
var Brands = []string{BrandTech, BrandRecords}

// FileEntry is one regular file inside a project, relative to the project folder.
type FileEntry struct {
	Path    string // slash-separated
	Size    int64
	ModTime int64 // unix seconds
}

// Descriptor is the scan-time view of one project folder.
type Descriptor struct {
	Path         string   `json:"path"`
	Brand        string   `json:"brand"`
	Name         string   `json:"name"`
	Files        []string `json:"files"`
	FileCount    int      `json:"file_count"`
	TotalSize    int64    `json:"total_size"`
	LastModified int64    `json:"last_modified"`
	Fingerprint  string   `json:"fingerprint"`
}

// NewDescriptor derives the aggregate fields and fingerprint from the entries.
func NewDescriptor(path, brand, name string, entries []FileEntry) Descriptor {
	d := Descriptor{
		Path:        path,
		Brand:       brand,
		Name:        name,
		Files:       make([]string, 0, len(entries)),
		FileCount:   len(entries),
		Fingerprint: Fingerprint(entries),
	}
	for _, e := range sortedEntries(entries) {
		d.Files = append(d.Files, e.Path)
		d.TotalSize += e.Size
		if e.ModTime > d.LastModified {
			d.LastModified = e.ModTime
		}
	}
	return d
}
