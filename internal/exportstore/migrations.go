package exportstore

const schema = `
CREATE TABLE IF NOT EXISTS export_jobs (
    id TEXT PRIMARY KEY,
    export_type TEXT NOT NULL,
    sheet_id TEXT NOT NULL,
    rows_exported INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    error TEXT,
    created_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_export_jobs_type ON export_jobs(export_type);
CREATE INDEX IF NOT EXISTS idx_export_jobs_status ON export_jobs(status);
CREATE INDEX IF NOT EXISTS idx_export_jobs_created_at ON export_jobs(created_at);

CREATE TABLE IF NOT EXISTS contact_submissions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    phone TEXT,
    subject TEXT,
    message TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    exported_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bookings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_name TEXT NOT NULL,
    email TEXT NOT NULL,
    space_name TEXT NOT NULL,
    starts_at TIMESTAMP NOT NULL,
    ends_at TIMESTAMP NOT NULL,
    guests INTEGER NOT NULL DEFAULT 1,
    status TEXT NOT NULL,
    total_cents INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    exported_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS payments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    booking_id INTEGER REFERENCES bookings(id),
    provider_ref TEXT NOT NULL,
    amount_cents INTEGER NOT NULL,
    currency TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    exported_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS class_registrations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    class_name TEXT NOT NULL,
    session_date TIMESTAMP NOT NULL,
    attendee_name TEXT NOT NULL,
    email TEXT NOT NULL,
    seats INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    exported_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_contacts_exported_at ON contact_submissions(exported_at);
CREATE INDEX IF NOT EXISTS idx_bookings_exported_at ON bookings(exported_at);
CREATE INDEX IF NOT EXISTS idx_payments_exported_at ON payments(exported_at);
CREATE INDEX IF NOT EXISTS idx_class_registrations_exported_at ON class_registrations(exported_at);
`
