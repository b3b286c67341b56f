package manifest

// DecodeAllDocs exposes decodeAllDocs for the
// manifest_test package.
var DecodeAllDocs = decodeAllDocs
