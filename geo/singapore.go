package geo

// singaporeClusters разбиение Сингапура на 7 районов
var singaporeClusters = []Cluster{
	{ID: "c1_central", Name: "Central / Downtown Core", Centroid: Point{Latitude: 1.2897, Longitude: 103.8501}, RadiusKm: 4},
	{ID: "c2_orchard", Name: "Orchard / Novena", Centroid: Point{Latitude: 1.3048, Longitude: 103.8318}, RadiusKm: 4},
	{ID: "c3_east", Name: "East (Katong / Changi)", Centroid: Point{Latitude: 1.3236, Longitude: 103.9273}, RadiusKm: 7},
	{ID: "c4_north_east", Name: "North-East (Serangoon / Punggol)", Centroid: Point{Latitude: 1.3700, Longitude: 103.8900}, RadiusKm: 7},
	{ID: "c5_north", Name: "North (Mandai / Woodlands)", Centroid: Point{Latitude: 1.4043, Longitude: 103.7930}, RadiusKm: 8},
	{ID: "c6_west", Name: "West (Jurong / Clementi)", Centroid: Point{Latitude: 1.3329, Longitude: 103.7436}, RadiusKm: 9},
	{ID: "c7_south", Name: "South (Sentosa / HarbourFront)", Centroid: Point{Latitude: 1.2494, Longitude: 103.8303}, RadiusKm: 4},
}

// SingaporeClusters возвращает копию эталонного разбиения
func SingaporeClusters() []Cluster {
	out := make([]Cluster, len(singaporeClusters))
	copy(out, singaporeClusters)
	return out
}

// SingaporePartition эталонное разбиение Сингапура
func SingaporePartition() *Partition {
	p, err := NewPartition(SingaporeClusters())
	if err != nil {
		panic(err)
	}
	return p
}
