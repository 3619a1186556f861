// Package schema loads grid definitions from YAML.
//
// A definition names a grid, its list and save endpoints, the filter keys it
// is fetched by and its ordered fields with their comparison kind. The
// business screens ship as an embedded default document; a schema_path in
// config replaces it wholesale.
//
//	grids:
//	  - name: meals
//	    list: /api/meals/list
//	    save: /api/meals/save
//	    filters:
//	      - {key: account, default: A100}
//	    fields:
//	      - {name: day, kind: identity}
//	      - {name: lunch, kind: numeric}
//	      - {name: account, kind: text, carry: true, readonly: true}
//
// Identity fields are always read-only in the editor.
package schema
