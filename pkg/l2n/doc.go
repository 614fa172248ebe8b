// Package l2n turns hierarchical layout geometry into a hierarchical
// netlist.
//
// A LayoutToNetlist owns a deep shape store that mirrors the cell hierarchy
// of a source layout. Layers are pulled into the store with MakeLayer, wired
// together with Connect and ConnectLayers, fed to device extractors and
// finally turned into circuits, nets, pins and subcircuits by
// ExtractNetlist. After extraction, nets can be probed at a point and their
// geometry retrieved per layer.
//
// # Usage
//
//	l, err := l2n.New(layout.NewRecursiveShapeIterator(ly, top, 0))
//	if err != nil {
//		return err
//	}
//	defer l.Close()
//
//	sd, _ := l.MakePolygonLayer(sdLayer, "SD")
//	g, _ := l.MakePolygonLayer(gateLayer, "G")
//	m1, _ := l.MakeLayer(metalLayer, "M1")
//
//	// Devices first, then connectivity and nets
//	nmos := extract.NewMOS3Extractor("NMOS")
//	err = l.ExtractDevices(ctx, nmos, map[string]*region.Region{"SD": sd, "G": g})
//
//	l.Connect(sd)
//	l.Connect(m1)
//	l.ConnectLayers(sd, m1)
//	err = l.ExtractNetlist(ctx)
//
//	net, err := l.ProbeNet(m1, geom.DPoint{X: 1.5, Y: 0.25})
//
// # Persistence
//
// Write stores an extraction in the netlist text format, in a long keyword
// form or a compact one-letter form. ReadInto rebuilds the cells, shapes
// and cluster wiring of a stored extraction inside a standalone
// LayoutToNetlist, so the loaded result can be probed like a fresh one. Read
// and WriteNetlist handle the netlist alone.
//
// Threads, AreaRatio and MaxVertexCount are forwarded to the deep shape
// store. They can be loaded from YAML with LoadConfig.
package l2n
