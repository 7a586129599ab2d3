package roster

import "context"

// SeedSampleData loads a small demo roster. It is a no-op when any
// students already exist, so it is safe to call repeatedly.
func (r *Repository) SeedSampleData(ctx context.Context) ([]Student, error) {
	existing, err := r.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	samples := []NewStudent{
		{Name: "Ada Lovelace", Email: "ada@example.edu", StudentNumber: "1001", Country: "GB"},
		{Name: "Grace Hopper", Email: "grace@example.edu", StudentNumber: "1002", Country: "US"},
		{Name: "Katherine Johnson", Email: "katherine@example.edu", StudentNumber: "1003", Country: "US"},
		{Name: "Alan Turing", Email: "alan@example.edu", StudentNumber: "1004", Country: "GB"},
		{Name: "Hedy Lamarr", Email: "hedy@example.edu", StudentNumber: "1005", Country: "AT"},
	}

	created := make([]Student, 0, len(samples))
	for _, in := range samples {
		s, err := r.CreateStudent(ctx, in)
		if err != nil {
			return nil, err
		}
		created = append(created, s)
	}
	return created, nil
}
