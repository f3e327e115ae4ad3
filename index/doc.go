// Package index defines the buildable index capability shared by every
// vector and scalar index variant.
//
// # Lifecycle
//
// An Index is created by a Factory in the Created state. It becomes Built
// through exactly one of Build, BuildFromFiles, BuildV2 or Load. Serialize,
// Upload and UploadV2 require a built index and may be called repeatedly:
// artifacts are deterministic, so a second Upload rewrites identical bytes.
//
//	Created ──Build/BuildFromFiles/BuildV2──▶ Built ──Upload──▶ Uploaded
//	   └───────────────Load──────────────────▶ Built
//
// # Variants
//
// Variants implement Core (or VectorCore) and register a constructor from
// an init function:
//
//	func init() {
//	    index.RegisterVector("FLAT", metrics, fieldTypes, newFlat)
//	}
//
// Base wraps a Core with the lifecycle, artifact slicing and the upload
// plumbing, so variants only deal with their own data structure.
//
// # Artifacts
//
// Serialize returns a BinarySet: an ordered list of named blobs. Blobs
// bigger than the configured slice size are split into "<name>_<i>" parts
// described by a SLICE_META blob; Load reassembles them.
package index
