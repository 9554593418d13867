package vfs

// NodeRequest has common fields embedded in concrete request types
type NodeRequest struct {
	Path string
	Type NodeRequestType
	UUID string // Identifies the request in results and logs
}

// NodeRequestType valid types are FileNodeType "file", DirNodeType "dir"
type NodeRequestType string

const (
	FileNodeType NodeRequestType = "file"
	DirNodeType  NodeRequestType = "dir"
)

// Source is a candidate byte source of a file request
type Source struct {
	Resource
	Priority int // Lower number = higher priority
}

// FileRequest asks for a file at Path filled from the first source that opens
type FileRequest struct {
	NodeRequest
	Sources []Source
}

// DirRequest asks for a folder (and its parents) at Path
type DirRequest struct {
	NodeRequest
}

// Request is implemented by [FileRequest] and [DirRequest]
type Request interface {
	Node() *NodeRequest
}

func (r *FileRequest) Node() *NodeRequest { return &r.NodeRequest }
func (r *DirRequest) Node() *NodeRequest  { return &r.NodeRequest }
