package assets

// AssetType tells which loader reads a file.
type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypePipeline
	AssetTypeScene
)

func (t AssetType) String() string {
	switch t {
	case AssetTypePipeline:
		return "pipeline"
	case AssetTypeScene:
		return "scene"
	default:
		return "none"
	}
}

// Resource is a loaded asset. Data holds the loader specific result.
type Resource struct {
	Name     string
	FullPath string
	Type     AssetType
	Data     interface{}
}

type Loader interface {
	Load(path string, params interface{}) (interface{}, error) // `interface{}` here allows loaders to return various asset types
}
