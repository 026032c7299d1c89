package geomodelgrids

import (
	"encoding/json"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// JsonDumps constructs a JSON string of the supplied data.
func JsonDumps(data any) (string, error) {
	jsn, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(jsn), nil
}

// JsonIndentDumps constructs a JSON string of the supplied data using an
// indentation of four spaces.
func JsonIndentDumps(data any) (string, error) {
	jsn, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return "", err
	}
	return string(jsn), nil
}

// WriteJson serializes data as indented JSON to fileURI through TileDB's
// VFS layer, so the destination may be a local path or any URI scheme the
// configured TileDB context understands (e.g. an object store). configURI
// selects a TileDB config file; an empty string uses TileDB's defaults.
// Used by the "summary" command to write its report to a file or URI.
func WriteJson(fileURI, configURI string, data any) (int, error) {
	var (
		config *tiledb.Config
		err    error
	)
	if configURI == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(configURI)
	}
	if err != nil {
		return 0, err
	}
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return 0, err
	}
	defer ctx.Free()

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		return 0, err
	}
	defer vfs.Free()

	stream, err := vfs.Open(fileURI, tiledb.TILEDB_VFS_WRITE)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	jsn, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return 0, err
	}

	return stream.Write(jsn)
}
