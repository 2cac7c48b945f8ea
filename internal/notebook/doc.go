// Package notebook holds the read-only page/content model of a notebook
// section and a reader for exported sections.
//
// An exported section is a YAML (or JSON) manifest describing page series,
// pages and their content nodes. It is read either as a standalone file, with
// binary payloads referenced relative to the manifest's directory, or from a
// ZIP bundle holding section.yaml at its root next to the payload files.
//
//	title: Kitchen
//	series:
//	  - pages:
//	      - title: Groceries
//	        contents:
//	          - kind: outline
//	            items:
//	              - element:
//	                  contents:
//	                    - kind: rich_text
//	                      text: Milk & eggs
//	                    - kind: image
//	                      src: media/list.png
//	          - kind: embedded_file
//	            filename: notes.pdf
//	            src: files/notes.pdf
//	          - kind: ink
//	            bbox: {x: 10, y: 20, width: 300, height: 40}
package notebook
